package commands

import (
	"encoding/json"
	"fmt"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/engine"
	"github.com/spf13/cobra"
)

// jobFlags are the inputs every job-level command needs.
type jobFlags struct {
	manifest   string
	detections string
}

func (f *jobFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "Job manifest (JSON or YAML)")
	cmd.Flags().StringVar(&f.detections, "detections", "", "Detections document (JSON or YAML)")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("detections")
}

// emit writes data to stdout for "-" and through the engine otherwise.
func emit(cmd *cobra.Command, eng *engine.Engine, dest, name string, data []byte) error {
	if dest == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	return eng.WriteArtifact(cmd.Context(), dest, name, data)
}

func newBOMCmd(a *app) *cobra.Command {
	var (
		jf  jobFlags
		out string
	)
	cmd := &cobra.Command{
		Use:     "bom",
		Short:   "Build the reviewed BOM document of a job",
		Example: "  assetlens bom --manifest job.json --detections detections.json --out s3://boms/reviewed",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if out != "-" {
				if err := engine.CheckArtifactDest(out); err != nil {
					return err
				}
			}
			eng, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(cmd, eng, &err)

			ctx := cmd.Context()
			j, err := eng.LoadJob(ctx, jf.manifest, jf.detections)
			if err != nil {
				return err
			}
			p, _, err := eng.LoadReview(ctx, j.ID())
			if err != nil {
				return err
			}
			doc, err := eng.BuildBOM(ctx, j, p)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			return emit(cmd, eng, out, j.ID()+"-bom-document.json", data)
		},
	}
	jf.register(cmd)
	cmd.Flags().StringVar(&out, "out", "-", "Destination: file path, store URL, or - for stdout")
	return cmd
}
