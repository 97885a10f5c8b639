package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bankledger/internal/shared/config"
)

// newRootCommand creates the root CLI command with all subcommands registered.
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands for the bank statement ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newSyncCommand(),
		newCredentialsCommand(),
		newHistoryCommand(),
		newInstitutionsCommand(),
		newAccountsCommand(),
		newRunsCommand(),
		newScheduleCommand(),
	)

	return rootCmd
}

// withApp loads configuration, opens the database and runs fn with a
// context cancelled on SIGINT/SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}
