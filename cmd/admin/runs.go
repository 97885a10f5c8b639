package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print the most recent sync run reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				reports, err := app.Runs.ListRecent(ctx, limit)
				if err != nil {
					return err
				}
				for _, report := range reports {
					printReport(cmd.OutOrStdout(), report)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")

	return cmd
}
