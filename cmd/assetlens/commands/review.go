package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newReviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and edit review overlays",
	}
	cmd.AddCommand(newReviewShowCmd(a), newReviewSetCmd(a), newReviewConsoleCmd(a))
	return cmd
}

func newReviewShowCmd(a *app) *cobra.Command {
	var jobID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current review overlay of a job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			eng, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(cmd, eng, &err)

			p, source, err := eng.LoadReview(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), subtleStyle.Render("source: "+source))
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "Job id")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

// setFlags is one edit of one detection's override.
type setFlags struct {
	jobID         string
	detectionID   string
	accept        bool
	reject        bool
	clearAccepted bool
	relabel       string
	clearRelabel  bool
	reset         bool
}

func (f setFlags) validate(relabelSet bool) error {
	n := 0
	for _, b := range []bool{f.accept, f.reject, f.clearAccepted} {
		if b {
			n++
		}
	}
	if n > 1 {
		return errors.New("--accept, --reject and --clear-accepted are mutually exclusive")
	}
	if relabelSet && f.clearRelabel {
		return errors.New("--relabel and --clear-relabel are mutually exclusive")
	}
	if f.reset && (n > 0 || relabelSet || f.clearRelabel) {
		return errors.New("--reset cannot be combined with other edits")
	}
	if !f.reset && n == 0 && !relabelSet && !f.clearRelabel {
		return errors.New("nothing to change")
	}
	return nil
}

func newReviewSetCmd(a *app) *cobra.Command {
	var f setFlags
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Change the override of one detection",
		Example: "  assetlens review set --job <id> --detection <id> --relabel gizmo\n  assetlens review set --job <id> --detection <id> --reject",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			relabelSet := cmd.Flags().Changed("relabel")
			if err := f.validate(relabelSet); err != nil {
				return err
			}

			eng, err := a.engine(cmd)
			if err != nil {
				return err
			}
			defer closeEngine(cmd, eng, &err)

			s, err := eng.OpenReview(cmd.Context(), f.jobID)
			if err != nil {
				return err
			}
			defer s.Close()

			if f.reset {
				if _, err := s.Clear(f.detectionID); err != nil {
					return err
				}
			}
			switch {
			case f.accept, f.reject:
				accepted := f.accept
				if _, err := s.SetAccepted(f.detectionID, &accepted); err != nil {
					return err
				}
			case f.clearAccepted:
				if _, err := s.SetAccepted(f.detectionID, nil); err != nil {
					return err
				}
			}
			switch {
			case relabelSet:
				relabel := f.relabel
				if _, err := s.SetRelabelAssetType(f.detectionID, &relabel); err != nil {
					return err
				}
			case f.clearRelabel:
				if _, err := s.SetRelabelAssetType(f.detectionID, nil); err != nil {
					return err
				}
			}
			s.Flush()

			data, err := json.MarshalIndent(s.Payload(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.jobID, "job", "", "Job id")
	flags.StringVar(&f.detectionID, "detection", "", "Detection id")
	flags.BoolVar(&f.accept, "accept", false, "Mark the detection accepted")
	flags.BoolVar(&f.reject, "reject", false, "Mark the detection rejected")
	flags.BoolVar(&f.clearAccepted, "clear-accepted", false, "Drop the accept/reject override")
	flags.StringVar(&f.relabel, "relabel", "", "Override the asset type (empty clears)")
	flags.BoolVar(&f.clearRelabel, "clear-relabel", false, "Drop the asset type override")
	flags.BoolVar(&f.reset, "reset", false, "Drop every override of the detection")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("detection")
	return cmd
}

func newReviewConsoleCmd(a *app) *cobra.Command {
	var jf jobFlags
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Review a job interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
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
			s, err := eng.OpenReview(ctx, j.ID())
			if err != nil {
				return err
			}
			defer s.Close()

			p := tea.NewProgram(tui.NewModel(j, s), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("review console: %w", err)
			}
			if s.Flush() {
				eng.Logger.Info("pending review written on exit", "job_id", j.ID())
			}
			return nil
		},
	}
	jf.register(cmd)
	return cmd
}
