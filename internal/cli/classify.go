package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kycengine/internal/cases/models"
	"kycengine/internal/catalog"
	"kycengine/internal/classification"
	"kycengine/internal/validation"
)

// ClassifyCommand classifies one entity against a catalog file without a server.
func ClassifyCommand() *cobra.Command {
	var (
		catalogPath string
		entityPath  string
		entity      models.Entity
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify an entity against a catalog file",
		Long: `Run country risk, role, matrix and document set resolution for one entity
and print the classification as JSON. Blocking outcomes (unresolved role, no
matrix rule) are reported as errors.

Examples:
  kycctl classify --catalog rules.json --country GB --role BROKER --sub-type Retail
  kycctl classify --catalog rules.json --entity acme.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadFile(catalogPath)
			if err != nil {
				return err
			}
			if entityPath != "" {
				if entity, err = readEntity(entityPath); err != nil {
					return err
				}
			}
			entity.Normalize()
			res, err := classification.Classify(snap, entity.ClassificationInput())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "config/business_rules.json", "Rule catalog file (JSON or YAML)")
	cmd.Flags().StringVar(&entityPath, "entity", "", "JSON file holding the entity; overrides the attribute flags")
	cmd.Flags().StringVar(&entity.Country, "country", "", "ISO country code")
	cmd.Flags().StringVar(&entity.RoleType, "role", "", "Declared role type")
	cmd.Flags().StringVar(&entity.SubType, "sub-type", "", "Customer sub-type")
	cmd.Flags().StringVar(&entity.SICCode, "sic", "", "SIC code")
	cmd.MarkFlagsMutuallyExclusive("entity", "country")
	return cmd
}

// ValidateCommand runs the pre-enrichment gates for one entity.
func ValidateCommand() *cobra.Command {
	var catalogPath string
	cmd := &cobra.Command{
		Use:   "validate <entity.json>",
		Short: "Run the pre-enrichment validation phases for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.LoadFile(catalogPath)
			if err != nil {
				return err
			}
			entity, err := readEntity(args[0])
			if err != nil {
				return err
			}
			entity.Normalize()
			report := validation.PreEnrichment(snap, entity.Fields())
			if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Passed() {
				return fmt.Errorf("%d check(s) failed in phase %d", len(report.Defects), report.BlockedAt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "config/business_rules.json", "Rule catalog file (JSON or YAML)")
	return cmd
}

func readEntity(path string) (models.Entity, error) {
	var e models.Entity
	raw, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}
