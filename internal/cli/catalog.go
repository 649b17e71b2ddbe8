package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kycengine/internal/catalog"
)

// CatalogCommand groups the catalog subcommands.
func CatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and summarize rule catalog files",
	}
	cmd.AddCommand(catalogValidateCommand(), catalogShowCommand())
	return cmd
}

func catalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Check a catalog file against the schema and its cross-references",
		Long: `Load a JSON or YAML rule catalog exactly as the server would and report
whether it is usable. Every error is fatal: a catalog that fails here would be
rejected by a reload.

Examples:
  kycctl catalog validate config/business_rules.json
  kycctl catalog validate rules.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			s := snap.Summary()
			fmt.Fprintf(cmd.OutOrStdout(), "catalog %s (schema %s) is valid: %d matrix rules, %d document sets, %d checks\n",
				s.Version, s.SchemaVersion, s.MatrixRules, len(s.DocumentSets), s.ValidationChecks)
			return nil
		},
	}
}

func catalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <path>",
		Short: "Print a JSON summary of a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadFile(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return writeJSON(cmd.OutOrStdout(), snap.Summary())
		},
	}
}
