package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bankledger/internal/domain/account"
	"bankledger/internal/domain/bank"
)

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage bank accounts",
	}
	cmd.AddCommand(
		newAccountsAddCommand(),
		newAccountsListCommand(),
		newAccountsActiveCommand("activate", true),
		newAccountsActiveCommand("deactivate", false),
	)
	return cmd
}

func newAccountsAddCommand() *cobra.Command {
	var params account.CreateParams
	var variant string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a bank account under an institution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bank.ParseVariant(variant)
			if err != nil {
				return err
			}
			params.Variant = v

			return withApp(cmd, func(ctx context.Context, app *App) error {
				acc, err := app.Accounts.CreateAccount(ctx, params)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), acc.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&params.InstitutionID, "institution-id", "", "owning institution (required)")
	cmd.Flags().StringVar(&variant, "variant", "", "bank variant: bank_a, bank_b or bank_c (required)")
	cmd.Flags().StringVar(&params.Name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&params.AccountNumber, "account-number", "", "account number at the bank")
	cmd.Flags().StringVar(&params.IBAN, "iban", "", "IBAN, discovered on first sync when omitted")
	cmd.Flags().StringVar(&params.Currency, "currency", "", "ISO 4217 currency (default "+account.DefaultCurrency+")")
	for _, name := range []string{"institution-id", "variant", "name"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newAccountsListCommand() *cobra.Command {
	var institutionID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active accounts, or every account of one institution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				var (
					accounts []*account.BankAccount
					err      error
				)
				if institutionID != "" {
					accounts, err = app.Accounts.ListInstitutionAccounts(ctx, institutionID)
				} else {
					accounts, err = app.Accounts.ListActiveAccounts(ctx)
				}
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVARIANT\tNAME\tIBAN\tBALANCE\tAS OF\tCREDS\tACTIVE")
				for _, acc := range accounts {
					balance, asOf := "-", "-"
					if acc.LastBalance != nil {
						balance = acc.LastBalance.StringFixed(2) + " " + acc.Currency
					}
					if acc.LastBalanceUpdate != nil {
						asOf = acc.LastBalanceUpdate.Format(time.DateTime)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
						acc.ID, acc.Variant, acc.Name, acc.IBAN, balance, asOf, acc.HasCredentials, acc.Active)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&institutionID, "institution-id", "", "limit to one institution")

	return cmd
}

func newAccountsActiveCommand(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <account-id>",
		Short: fmt.Sprintf("Mark an account %sd for scheduled syncs", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return app.Accounts.SetActive(ctx, args[0], active)
			})
		},
	}
}
