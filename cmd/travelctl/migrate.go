package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/travelog-backend/internal/data/db"
)

func newMigrateCmd(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := db.NewService(env.cfg.DB, env.log)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()
			if err := store.AutoMigrateAll(); err != nil {
				return fmt.Errorf("automigrate: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), env.format(), map[string]string{
				"driver": store.Driver(),
				"status": "migrated",
			})
		},
	}
}
