// Package job assembles a validated manifest and its detections into the
// unit a reviewer works on: a job split into renders.
package job

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
)

// Render is one rendered image of the job's asset and the detections
// found on it.
type Render struct {
	ID         string
	AssetURI   string
	Detections []contract.Detection
}

// Job is a manifest together with the detections produced for it.
type Job struct {
	Manifest   contract.JobManifest
	Detections contract.DetectionsDocument
	Renders    []Render
}

// ID returns the job id shared by the manifest and detections.
func (j *Job) ID() string {
	return j.Manifest.JobID
}

// Render looks a render up by id.
func (j *Job) Render(id string) (Render, bool) {
	for _, r := range j.Renders {
		if r.ID == id {
			return r, true
		}
	}
	return Render{}, false
}

// Assemble checks that d belongs to m and groups the detections into
// renders. Render ids are r1..rN in ascending asset URI order; detections
// keep their document order within a render.
func Assemble(ctx context.Context, m contract.JobManifest, d contract.DetectionsDocument) (*Job, error) {
	if err := lineage.CheckJob(ctx, m, d); err != nil {
		return nil, fmt.Errorf("assemble job %s: %w", m.JobID, err)
	}
	return &Job{
		Manifest:   m,
		Detections: d,
		Renders:    GroupRenders(d.Detections),
	}, nil
}

// GroupRenders groups detections by asset URI.
func GroupRenders(detections []contract.Detection) []Render {
	byURI := map[string][]contract.Detection{}
	for _, det := range detections {
		byURI[det.AssetURI] = append(byURI[det.AssetURI], det)
	}

	uris := make([]string, 0, len(byURI))
	for uri := range byURI {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	renders := make([]Render, 0, len(uris))
	for i, uri := range uris {
		renders = append(renders, Render{
			ID:         "r" + strconv.Itoa(i+1),
			AssetURI:   uri,
			Detections: byURI[uri],
		})
	}
	return renders
}
