package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bankledger/internal/infrastructure/postgres"
	"bankledger/internal/shared/config"
)

func newMigrateCommand() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back with --down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if down > 0 {
				if err := postgres.Rollback(cfg.Database.ConnectionString(), down); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", down)
				return nil
			}

			version, err := postgres.Migrate(cfg.Database.ConnectionString())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")

	return cmd
}
