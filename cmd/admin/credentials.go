package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bankledger/internal/domain/bank"
)

var errNoFields = errors.New("at least one --field is required")

func newCredentialsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Inspect and store bank credentials",
	}
	cmd.AddCommand(newCredentialsSchemaCommand(), newCredentialsSetCommand(), newCredentialsShowCommand())
	return cmd
}

// credentialSchemaDoc is the YAML shape printed by `credentials schema`.
type credentialSchemaDoc struct {
	Variant string       `yaml:"variant"`
	Fields  []bank.Field `yaml:"fields"`
}

func newCredentialsSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "schema <variant>",
		Short:     "Print the credential fields a bank variant needs",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{bank.VariantA.String(), bank.VariantB.String(), bank.VariantC.String()},
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := bank.ParseVariant(args[0])
			if err != nil {
				return err
			}
			fields, err := bank.Schema(variant)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(credentialSchemaDoc{Variant: variant.String(), Fields: fields}); err != nil {
				return fmt.Errorf("encoding schema: %w", err)
			}
			return enc.Close()
		},
	}
}

func newCredentialsSetCommand() *cobra.Command {
	var (
		accountID string
		fields    []string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Validate, encrypt and store credentials for an account",
		Long: `Stores credentials for an account. Every field of the account's variant is
required; a secret field left empty keeps the stored value.`,
		Example: `  admin credentials set --account-id=3f6c... --field user_code=U1 --field password=... --field iban=TR...`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFieldFlags(fields)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				if err := app.Accounts.SaveCredentials(ctx, accountID, values); err != nil {
					var ve *bank.ValidationError
					if errors.As(err, &ve) {
						return fmt.Errorf("missing fields for %s: %s", ve.Variant, strings.Join(ve.Missing, ", "))
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Credentials stored for account %s\n", accountID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&accountID, "account-id", "", "account to update (required)")
	_ = cmd.MarkFlagRequired("account-id")
	cmd.Flags().StringArrayVar(&fields, "field", nil, "credential field as name=value (repeatable)")

	return cmd
}

func newCredentialsShowCommand() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the non-secret stored credential fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				view, err := app.Accounts.CredentialView(ctx, accountID)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(view))
				for name := range view {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, view[name])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&accountID, "account-id", "", "account to inspect (required)")
	_ = cmd.MarkFlagRequired("account-id")

	return cmd
}

// parseFieldFlags turns repeated name=value flags into a map. Values may
// contain '='.
func parseFieldFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, errNoFields
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --field %q, want name=value", pair)
		}
		out[name] = value
	}
	return out, nil
}
