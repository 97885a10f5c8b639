package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bankledger/internal/domain/institution"
)

func newInstitutionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "institutions",
		Aliases: []string{"inst"},
		Short:   "Manage the institution tree",
	}
	cmd.AddCommand(
		newInstitutionsAddCommand(),
		newInstitutionsListCommand(),
		newInstitutionsSetParentCommand(),
		newInstitutionsDeleteCommand(),
	)
	return cmd
}

func newInstitutionsAddCommand() *cobra.Command {
	var name, parentID, taxID string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an institution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				inst, err := app.Institutions.Create(ctx, institution.CreateParams{
					Name:     name,
					ParentID: optional(parentID),
					TaxID:    taxID,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), inst.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&parentID, "parent-id", "", "parent institution")
	cmd.Flags().StringVar(&taxID, "tax-id", "", "tax identifier")

	return cmd
}

func newInstitutionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List institutions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				institutions, err := app.Institutions.List(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPARENT\tTAX ID\tACTIVE")
				for _, inst := range institutions {
					parent := "-"
					if inst.ParentID != nil {
						parent = *inst.ParentID
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", inst.ID, inst.Name, parent, inst.TaxID, inst.Active)
				}
				return tw.Flush()
			})
		},
	}
}

func newInstitutionsSetParentCommand() *cobra.Command {
	var parentID string

	cmd := &cobra.Command{
		Use:   "set-parent <institution-id>",
		Short: "Move an institution under another one, or to the root with no --parent-id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return app.Institutions.SetParent(ctx, args[0], optional(parentID))
			})
		},
	}

	cmd.Flags().StringVar(&parentID, "parent-id", "", "new parent institution")

	return cmd
}

func newInstitutionsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <institution-id>",
		Short: "Delete an institution without children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				return app.Institutions.Delete(ctx, args[0])
			})
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
