// Package cli implements kycctl, the operator tool for rule catalogs and
// offline classification.
package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the kycctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kycctl",
		Short:         "Inspect rule catalogs and classify entities offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(CatalogCommand(), ClassifyCommand(), ValidateCommand())
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
