package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/bom"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/config"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review/session"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	manifestFixture   = "../contract/testdata/job.json"
	detectionsFixture = "../contract/testdata/detections.json"
)

var clock = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, cfg config.Config, local, canonical storage.BlobStore) *Engine {
	t.Helper()
	cfg.Review.LocalDir = t.TempDir()
	eng, err := New(context.Background(),
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithStores(local, canonical),
		WithClock(func() time.Time { return clock }),
		WithoutTelemetry(),
	)
	require.NoError(t, err)
	return eng
}

func TestEngineInitialization(t *testing.T) {
	cfg := config.Default()
	cfg.Review.LocalDir = t.TempDir()

	eng, err := New(context.Background(), WithConfig(cfg), WithoutTelemetry())
	require.NoError(t, err)
	assert.NotNil(t, eng.Logger)
	assert.IsType(t, &storage.LocalStore{}, eng.Local)
	assert.Nil(t, eng.Canonical)
	assert.NoError(t, eng.Close(context.Background()))
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Review.CanonicalURL = "gopher://nowhere"

	_, err := New(context.Background(), WithConfig(cfg), WithoutTelemetry())
	assert.Error(t, err)
}

func TestEngineRejectsBadExtraRule(t *testing.T) {
	cfg := config.Default()
	cfg.Review.LocalDir = t.TempDir()
	cfg.Lineage.ExtraRules = []lineage.Rule{{ID: "bad", Condition: "manifest.jobId +"}}

	_, err := New(context.Background(), WithConfig(cfg), WithoutTelemetry())
	assert.Error(t, err)
}

func TestReviewToExport(t *testing.T) {
	ctx := context.Background()
	local, canonical := storage.NewMemoryStore(), storage.NewMemoryStore()
	eng := newTestEngine(t, config.Default(), local, canonical)

	j, err := eng.LoadJob(ctx, manifestFixture, detectionsFixture)
	require.NoError(t, err)
	require.Len(t, j.Renders, 2)

	s, err := eng.OpenReview(ctx, j.ID())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, session.SourceEmpty, s.Source())

	gizmo := "gizmo"
	rejected := false
	_, err = s.SetRelabelAssetType("22222222-2222-4222-8222-222222222222", &gizmo)
	require.NoError(t, err)
	p, err := s.SetAccepted("44444444-4444-4444-8444-444444444444", &rejected)
	require.NoError(t, err)
	require.True(t, s.Flush())

	loaded, source, err := eng.LoadReview(ctx, j.ID())
	require.NoError(t, err)
	assert.Equal(t, "canonical", source)
	assert.Equal(t, p.Instances(), loaded.Instances())

	a, err := eng.Export(ctx, j, "r1", loaded)
	require.NoError(t, err)
	assert.Equal(t, []bom.Row{{AssetType: "gizmo", Count: 2}, {AssetType: "widget", Count: 1}}, a.BOM)
	assert.Equal(t, "2025-01-15T12:00:00.000Z", a.UpdatedAt)

	_, err = eng.Export(ctx, j, "r7", loaded)
	assert.ErrorIs(t, err, bom.ErrRenderNotFound)

	doc, err := eng.BuildBOM(ctx, j, loaded)
	require.NoError(t, err)
	assert.Len(t, doc.Components, 4)
	assert.Equal(t, j.Detections.TraceID, doc.TraceID)
}

func TestLoadJobRejectsInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, config.Default(), storage.NewMemoryStore(), nil)

	raw, err := os.ReadFile(detectionsFixture)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	doc["detections"].([]any)[0].(map[string]any)["score"] = 2
	bad, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "detections.json")
	require.NoError(t, os.WriteFile(path, bad, 0600))

	_, err = eng.LoadJob(ctx, manifestFixture, path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrContractViolation))

	_, err = eng.LoadJob(ctx, manifestFixture, filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestIngestAppliesExtraRules(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Lineage.ExtraRules = []lineage.Rule{{
		ID:        "pinned_model",
		Condition: "detections.provenance.modelName == 'sam3d'",
		Message:   "only sam3d output is accepted",
	}}
	eng := newTestEngine(t, cfg, storage.NewMemoryStore(), nil)

	_, err := eng.LoadJob(ctx, manifestFixture, detectionsFixture)
	require.Error(t, err)
	assert.ErrorIs(t, err, lineage.ErrLineage)
	assert.Contains(t, err.Error(), "pinned_model")
}

func TestWriteArtifact(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, config.Default(), storage.NewMemoryStore(), nil)
	dir := t.TempDir()

	path := filepath.Join(dir, "out", "bom.json")
	require.NoError(t, eng.WriteArtifact(ctx, path, "ignored", []byte(`{}`)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	require.NoError(t, eng.WriteArtifact(ctx, "file://"+dir, "bom/job.json", []byte(`{}`)))
	data, err = os.ReadFile(filepath.Join(dir, "bom", "job.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	err = eng.WriteArtifact(ctx, "https://reviews.example.com/api", "job-bom.json", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnsupportedDestination)
}

func TestCheckArtifactDest(t *testing.T) {
	tests := []struct {
		dest string
		ok   bool
	}{
		{"out/bom.json", true},
		{"s3://boms/reviewed", true},
		{"dynamodb://boms", true},
		{"file:///tmp/boms", true},
		{"", false},
		{"http://localhost:8080", false},
		{"https://reviews.example.com/api", false},
	}
	for _, tt := range tests {
		err := CheckArtifactDest(tt.dest)
		if tt.ok {
			assert.NoError(t, err, tt.dest)
		} else {
			assert.ErrorIs(t, err, ErrUnsupportedDestination, tt.dest)
		}
	}
}

func TestRedactSensitiveData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redactSensitiveData}))

	logger.Info("store configured", "token", "abc123", "Secret", "s3cr3t", "job_id", "job-1")

	out := buf.String()
	assert.NotContains(t, out, "abc123")
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "job-1")
}

func TestRecoverPanic(t *testing.T) {
	eng := newTestEngine(t, config.Default(), storage.NewMemoryStore(), nil)

	run := func() (err error) {
		defer eng.recoverPanic(context.Background(), "test", &err)
		panic("boom")
	}
	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
