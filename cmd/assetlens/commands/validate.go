package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/spf13/cobra"
)

var validators = map[string]func(doc any) error{
	"manifest":   checker(contract.JobManifestSchema),
	"detections": checker(contract.DetectionsDocumentSchema),
	"bom":        checker(contract.BomDocumentSchema),
	"review":     checker(contract.ReviewPayloadSchema),
	"export":     checker(contract.ExportArtifactSchema),
}

func checker[T any](s contract.Schema[T]) func(doc any) error {
	return func(doc any) error {
		_, err := contract.ValidateOrFail(s, doc)
		return err
	}
}

func validatorKinds() []string {
	return []string{"manifest", "detections", "bom", "review", "export"}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <kind> <file>",
		Short: "Check a document against its contract",
		Long: fmt.Sprintf(`Validate a JSON or YAML document and report every violation.

Kinds: %s`, strings.Join(validatorKinds(), ", ")),
		Example: "  assetlens validate manifest job.json\n  assetlens validate detections detections.yaml",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			check, ok := validators[kind]
			if !ok {
				return fmt.Errorf("unknown document kind %q (want one of %s)", kind, strings.Join(validatorKinds(), ", "))
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			doc, err := contract.DecodeDocument(path, data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			if err := check(doc); err != nil {
				var verr *contract.ValidationError
				if errors.As(err, &verr) {
					fmt.Fprintln(out, errorStyle.Render(fmt.Sprintf("%s: invalid %s", path, verr.Schema)))
					for _, v := range verr.Violations {
						fmt.Fprintln(out, subtleStyle.Render("  - "+v.String()))
					}
					return fmt.Errorf("%s: %d violations", path, len(verr.Violations))
				}
				return err
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s: valid %s", path, kind)))
			return nil
		},
	}
}
