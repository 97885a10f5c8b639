package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bankledger/internal/interfaces/scheduler"
)

func newScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Inspect or change the stored sync schedule",
		Long: `The schedule is stored in the database and re-read by syncd before every
cycle, so changes apply without a restart.`,
	}
	cmd.AddCommand(
		newScheduleShowCommand(),
		newScheduleSetCommand(),
		newScheduleActiveCommand("enable", "Resume scheduled syncs", true),
		newScheduleActiveCommand("disable", "Pause scheduled syncs", false),
	)
	return cmd
}

func newScheduleShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored schedule and its next activations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				job, err := app.Jobs.Get(ctx, scheduler.SyncJobName)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "name:    %s\nspec:    %s\nactive:  %t\nupdated: %s\n",
					job.Name, job.Spec, job.Active, job.UpdatedAt.Format(time.RFC3339))

				schedule, err := scheduler.ParseSpec(job.Spec)
				if err != nil {
					fmt.Fprintf(out, "warning: stored spec is invalid: %v\n", err)
					return nil
				}
				next := time.Now()
				for i := 0; i < 3; i++ {
					next = schedule.Next(next)
					fmt.Fprintf(out, "next:    %s\n", next.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newScheduleSetCommand() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Change the sync schedule",
		Example: `  admin schedule set --spec="@every 10m"
  admin schedule set --spec="0 */2 * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := scheduler.ParseSpec(spec); err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if _, err := app.Jobs.EnsureDefault(ctx, scheduler.SyncJobName, spec); err != nil {
					return err
				}
				return app.Jobs.SetSpec(ctx, scheduler.SyncJobName, spec)
			})
		},
	}

	cmd.Flags().StringVar(&spec, "spec", "", "cron expression or descriptor such as @every 5m (required)")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}

func newScheduleActiveCommand(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return app.Jobs.SetActive(ctx, scheduler.SyncJobName, active)
			})
		},
	}
}
