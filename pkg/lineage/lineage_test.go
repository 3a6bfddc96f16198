package lineage

import (
	"context"
	"errors"
	"testing"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func provenance() contract.Provenance {
	return contract.Provenance{
		PipelineName:    "assetlens-2d",
		PipelineVersion: "0.3.0",
		ModelName:       "sam2d",
		ModelVersion:    "2.1",
		ConfigHash:      "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		CommitHash:      "a1b2c3d",
		Seed:            int64Ptr(42),
	}
}

func documents() (contract.JobManifest, contract.DetectionsDocument) {
	m := contract.JobManifest{
		SchemaVersion: contract.SchemaVersion,
		TraceID:       "7f1d2c3b-4a5e-4f60-8a1b-2c3d4e5f6a7b",
		JobID:         "0b6f3c2a-9d8e-4c7b-a6f5-e4d3c2b1a090",
		CreatedAt:     "2025-01-15T10:30:00.000Z",
		Provenance:    provenance(),
		Input:         contract.JobInput{URI: "s3://bucket/part.step"},
		Options:       contract.JobOptions{Seed: int64Ptr(42)},
	}
	d := contract.DetectionsDocument{
		SchemaVersion: contract.SchemaVersion,
		TraceID:       m.TraceID,
		JobID:         m.JobID,
		CreatedAt:     "2025-01-15T10:31:12.500Z",
		Provenance:    provenance(),
		Detections: []contract.Detection{
			{DetectionID: "11111111-1111-4111-8111-111111111111", Kind: "widget", AssetURI: "renders/r1.png", Score: 0.9},
		},
	}
	return m, d
}

func failedRules(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLineage))
	var lerr *Error
	require.True(t, errors.As(err, &lerr))
	var ids []string
	for _, f := range lerr.Failures {
		ids = append(ids, f.RuleID)
	}
	return ids
}

func TestCheckJob(t *testing.T) {
	ctx := context.Background()

	t.Run("consistent", func(t *testing.T) {
		m, d := documents()
		assert.NoError(t, CheckJob(ctx, m, d))
	})

	t.Run("trace and job mismatch reported together", func(t *testing.T) {
		m, d := documents()
		d.TraceID = "00000000-0000-4000-8000-000000000000"
		d.JobID = "00000000-0000-4000-8000-000000000001"
		assert.Equal(t, []string{"trace_id", "job_id"}, failedRules(t, CheckJob(ctx, m, d)))
	})

	t.Run("provenance drift", func(t *testing.T) {
		m, d := documents()
		d.Provenance.ModelVersion = "2.2"
		assert.Equal(t, []string{"provenance"}, failedRules(t, CheckJob(ctx, m, d)))
	})

	t.Run("seed mismatch", func(t *testing.T) {
		m, d := documents()
		m.Options.Seed = int64Ptr(7)
		assert.Equal(t, []string{"seed"}, failedRules(t, CheckJob(ctx, m, d)))
	})

	t.Run("seed absent from options", func(t *testing.T) {
		m, d := documents()
		m.Options.Seed = nil
		assert.NoError(t, CheckJob(ctx, m, d))
	})
}

func TestCheckBOM(t *testing.T) {
	ctx := context.Background()
	_, d := documents()
	b := contract.BomDocument{
		SchemaVersion: contract.SchemaVersion,
		TraceID:       d.TraceID,
		JobID:         d.JobID,
		CreatedAt:     d.CreatedAt,
		Provenance:    d.Provenance,
		Components: []contract.BomComponent{
			{ComponentID: d.Detections[0].DetectionID, Name: "widget"},
		},
	}
	require.NoError(t, CheckBOM(ctx, d, b))

	b.Components = append(b.Components, contract.BomComponent{ComponentID: "stray", Name: "gizmo"})
	assert.Equal(t, []string{"bom_components"}, failedRules(t, CheckBOM(ctx, d, b)))
}

func TestNewCheckerRejectsBadRules(t *testing.T) {
	_, err := NewChecker([]Rule{{ID: "broken", Condition: "manifest.jobId =="}})
	assert.Error(t, err)

	_, err = NewChecker([]Rule{{ID: "not_bool", Condition: "'job'"}})
	assert.Error(t, err)
}

func TestMissingFieldIsFailure(t *testing.T) {
	c, err := NewChecker([]Rule{{ID: "needs_bom", Condition: "bom.jobId == manifest.jobId", Message: "x"}})
	require.NoError(t, err)

	m, _ := documents()
	assert.Equal(t, []string{"needs_bom"}, failedRules(t, c.Check(context.Background(), Documents{Manifest: &m})))
}
