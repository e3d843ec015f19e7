package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yungbote/travelog-backend/internal/app"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

const (
	cfgKeyOutput   = "output"
	cfgKeyTimezone = "timezone"
	cfgKeyLogMode  = "log_mode"

	envPrefix = "TRAVELCTL"
)

// cliEnv is shared by every subcommand once the root pre-run has finished.
type cliEnv struct {
	v   *viper.Viper
	log *logger.Logger
	cfg app.Config
}

func newRootCmd() *cobra.Command {
	env := &cliEnv{v: viper.New()}

	root := &cobra.Command{
		Use:           "travelctl",
		Short:         "Maintenance commands for the travelog backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if env.log != nil {
				env.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringP(cfgKeyOutput, "o", "json", "output format: json or yaml")
	root.PersistentFlags().String(cfgKeyTimezone, "", "timezone for calendar days (default: SWEEP_TIMEZONE)")
	root.PersistentFlags().String("log-mode", "", "logger mode: development or production (default: LOG_MODE)")

	root.AddCommand(newSweepCmd(env))
	root.AddCommand(newMigrateCmd(env))
	root.AddCommand(newTokenCmd(env))
	return root
}

// init resolves settings with precedence flag > TRAVELCTL_* env > server env > default.
func (e *cliEnv) init(cmd *cobra.Command) error {
	e.v.SetEnvPrefix(envPrefix)
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()
	e.v.SetDefault(cfgKeyOutput, "json")
	e.v.SetDefault(cfgKeyLogMode, "development")

	flags := cmd.Root().PersistentFlags()
	if err := e.v.BindPFlag(cfgKeyOutput, flags.Lookup(cfgKeyOutput)); err != nil {
		return err
	}
	if err := e.v.BindPFlag(cfgKeyTimezone, flags.Lookup(cfgKeyTimezone)); err != nil {
		return err
	}
	if err := e.v.BindPFlag(cfgKeyLogMode, flags.Lookup("log-mode")); err != nil {
		return err
	}

	if _, err := parseFormat(e.v.GetString(cfgKeyOutput)); err != nil {
		return err
	}

	log, err := logger.New(e.v.GetString(cfgKeyLogMode))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	e.log = log

	cfg, err := app.ReadConfig(log)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if tz := strings.TrimSpace(e.v.GetString(cfgKeyTimezone)); tz != "" {
		cfg.SweepTimezone = tz
	}
	e.cfg = cfg
	return nil
}

func (e *cliEnv) format() outputFormat {
	f, _ := parseFormat(e.v.GetString(cfgKeyOutput))
	return f
}
