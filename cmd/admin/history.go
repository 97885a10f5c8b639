package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bankledger/internal/domain/transaction"
)

func newHistoryCommand() *cobra.Command {
	var (
		accountID string
		days      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print daily closing balances of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				acc, err := app.Accounts.GetAccount(ctx, accountID)
				if err != nil {
					return err
				}

				from, to := transaction.HistoryWindow(time.Now(), days)
				balances, err := transaction.History(ctx, app.Transactions, acc.ID, from, to)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s) %s..%s\n", acc.Name, acc.Currency, from.Format(time.DateOnly), to.Format(time.DateOnly))
				if len(balances) == 0 {
					fmt.Fprintln(out, "No movements in range")
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(tw, "DATE\tCLOSING\tMOVEMENTS\t")
				for _, b := range balances {
					fmt.Fprintf(tw, "%s\t%s\t%d\t\n", b.Date.Format(time.DateOnly), b.Balance.StringFixed(2), b.Movements)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&accountID, "account-id", "", "account to report (required)")
	_ = cmd.MarkFlagRequired("account-id")
	cmd.Flags().IntVar(&days, "days", 30, "number of days up to and including today")

	return cmd
}
