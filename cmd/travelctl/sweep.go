package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/travelog-backend/internal/data/db"
	"github.com/yungbote/travelog-backend/internal/data/repos"
	"github.com/yungbote/travelog-backend/internal/jobs/sweep"
	"github.com/yungbote/travelog-backend/internal/services"
)

func newSweepCmd(env *cliEnv) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one plan status sweep",
		Long: `Sweep moves plans whose start date has arrived to IN_PROGRESS and plans
whose end date has passed to COMPLETED, exactly as the daily scheduled job does.

Example:
  travelctl sweep
  travelctl sweep --date 2024-06-10 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := env.cfg.SweepLocation()
			if err != nil {
				return err
			}
			today, err := parseDay(date, loc, time.Now())
			if err != nil {
				return err
			}

			store, err := db.NewService(env.cfg.DB, env.log)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			lifecycle := services.NewPlanLifecycleService(env.log, repos.NewPlanRepo(store.DB(), env.log))
			report, err := runSweep(cmd.Context(), env, lifecycle, loc, today)
			if report != nil {
				if werr := writeOutput(cmd.OutOrStdout(), env.format(), report); werr != nil {
					return werr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "calendar day to sweep as YYYY-MM-DD (default: today)")
	return cmd
}

func runSweep(ctx context.Context, env *cliEnv, lifecycle services.PlanLifecycleService, loc *time.Location, today time.Time) (*services.SweepReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	scheduler, err := sweep.New(env.log, lifecycle, nil, sweep.Config{Spec: env.cfg.SweepCron, Location: loc})
	if err != nil {
		return nil, err
	}
	return scheduler.RunOnce(ctx, today, sweep.TriggerManual)
}

// parseDay resolves --date in loc; an empty value means the current day in loc.
func parseDay(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.In(loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", raw)
	}
	return d, nil
}
