package commands

import (
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/engine"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		jf       jobFlags
		renderID string
		out      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the BOM artifact of one render",
		Long: `Export the accepted detections of one render as a BOM artifact.

Render ids are r1..rN, numbered by asset URI.`,
		Example: "  assetlens export --manifest job.json --detections detections.json --render r1",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if out != "" && out != "-" {
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
			artifact, err := eng.Export(ctx, j, renderID, p)
			if err != nil {
				return err
			}
			data, err := artifact.MarshalIndent()
			if err != nil {
				return err
			}
			dest := out
			if dest == "" {
				dest = artifact.FileName()
			}
			return emit(cmd, eng, dest, artifact.FileName(), data)
		},
	}
	jf.register(cmd)
	cmd.Flags().StringVar(&renderID, "render", "r1", "Render id")
	cmd.Flags().StringVar(&out, "out", "", "Destination: file path, store URL, or - for stdout (default <jobId>-bom.json)")
	return cmd
}
