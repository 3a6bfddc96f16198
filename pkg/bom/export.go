package bom

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/job"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
)

// ErrRenderNotFound is returned by Export for an id that names no render
// of the job.
var ErrRenderNotFound = errors.New("render not found")

// Artifact is the downloadable BOM of one render.
type Artifact struct {
	JobID     string `json:"jobId"`
	UpdatedAt string `json:"updatedAt"`
	RenderID  string `json:"renderId"`
	BOM       []Row  `json:"bom"`
}

// Export builds the BOM artifact of one render under the given review.
// The artifact is validated before it is returned.
func Export(j *job.Job, renderID string, p review.Payload) (Artifact, error) {
	r, ok := j.Render(renderID)
	if !ok {
		return Artifact{}, fmt.Errorf("export %s/%s: %w", j.ID(), renderID, ErrRenderNotFound)
	}

	a := Artifact{
		JobID:     j.ID(),
		UpdatedAt: review.FormatTimestamp(p.UpdatedAt),
		RenderID:  r.ID,
		BOM:       BuildRows(r.Detections, p),
	}
	if _, err := contract.ValidateOrFail(contract.ExportArtifactSchema, a); err != nil {
		return Artifact{}, fmt.Errorf("export %s/%s: %w", j.ID(), renderID, err)
	}
	return a, nil
}

// MarshalIndent renders the artifact with two-space indentation.
func (a Artifact) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// FileName is the suggested download name of the artifact.
func (a Artifact) FileName() string {
	return a.JobID + "-bom.json"
}
