package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/scoring"
)

// ScoreCmd prints the completion breakdown of a JSON fields file
func ScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [fields.json]",
		Short: "Score a fields file against a completion ruleset",
		Long: `Reads a JSON object of document fields (the "fields" member of a
document, or the object itself) and prints the completion percentage and the
required fields that are still missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			docKind := models.DocumentKind(kind)
			if !docKind.Valid() {
				return fmt.Errorf("invalid kind: %s\nValid kinds: profile, vision", kind)
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			fields, err := decodeFieldsFile(data)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			registry, err := scoring.NewRegistry()
			if err != nil {
				return err
			}
			ruleset, err := registry.Ruleset(docKind)
			if err != nil {
				return err
			}
			res := scoring.Evaluate(fields, ruleset)

			out := cmd.OutOrStdout()
			pct := color.New(color.FgGreen)
			if res.Percent < 100 {
				pct = color.New(color.FgYellow)
			}
			fmt.Fprintf(out, "%s completion: %s (%d/%d)\n", docKind, pct.Sprintf("%d%%", res.Percent), res.Completed, res.Total)
			for _, key := range res.Missing {
				fmt.Fprintf(out, "  %s missing %s\n", warnMark, key)
			}
			return nil
		},
	}
	cmd.Flags().String("kind", string(models.DocumentKindVision), "Document kind: profile or vision")
	return cmd
}

// decodeFieldsFile accepts either a bare fields object or a document with a
// fields member
func decodeFieldsFile(data []byte) (models.Fields, error) {
	var doc struct {
		Fields *models.Fields `json:"fields"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Fields != nil {
		return *doc.Fields, nil
	}

	var fields models.Fields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
