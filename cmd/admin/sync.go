package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"bankledger/internal/domain/banksync"
	"bankledger/internal/infrastructure/postgres/listener"
)

func newSyncCommand() *cobra.Command {
	var (
		accountID string
		all       bool
		notify    bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync bank statements for one account or every active account",
		Example: `  admin sync --account-id=3f6c...
  admin sync --all
  admin sync --all --notify   # let the running syncd do it`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := accountID
			if all {
				target = listener.FleetPayload
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				if notify {
					if err := listener.Notify(ctx, app.DB, target); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Sync requested for %s\n", target)
					return nil
				}

				var (
					report *banksync.Report
					err    error
				)
				if all {
					report, err = app.Orchestrator.SyncAll(ctx, banksync.TriggerOnDemand)
				} else {
					report, err = app.Orchestrator.SyncAccount(ctx, accountID)
				}
				if err != nil {
					return err
				}

				printReport(cmd.OutOrStdout(), report)
				if report.Failed() > 0 {
					return fmt.Errorf("%d account(s) failed", report.Failed())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&accountID, "account-id", "", "account to sync")
	cmd.Flags().BoolVar(&all, "all", false, "sync every active account")
	cmd.Flags().BoolVar(&notify, "notify", false, "ask a running syncd to sync instead of syncing here")
	cmd.MarkFlagsMutuallyExclusive("account-id", "all")
	cmd.MarkFlagsOneRequired("account-id", "all")

	return cmd
}

func printReport(w io.Writer, report *banksync.Report) {
	fmt.Fprintln(w, report.Summary())
	for _, res := range report.Results {
		if res.Status == banksync.StatusSucceeded {
			fmt.Fprintf(w, "  %s  %-7s fetched=%d inserted=%d skipped=%d\n",
				res.AccountID, res.Variant, res.Fetched, res.Inserted, res.Skipped)
			continue
		}
		reason := res.Reason
		if reason == "" && res.Err != nil {
			reason = res.Err.Error()
		}
		fmt.Fprintf(w, "  %s  %-7s FAILED at %s: %s\n", res.AccountID, res.Variant, res.Stage, reason)
	}
}
