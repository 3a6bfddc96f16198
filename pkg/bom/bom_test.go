package bom

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/job"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)

func detections(pairs ...string) []contract.Detection {
	var out []contract.Detection
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, contract.Detection{DetectionID: pairs[i], Kind: pairs[i+1], AssetURI: "r.png", Score: 0.5})
	}
	return out
}

func str(s string) *string { return &s }
func flag(b bool) *bool    { return &b }

func TestBuildRowsScenarioA(t *testing.T) {
	dets := detections("d1", "widget", "d2", "widget", "d3", "gizmo", "d4", "alpha")
	p := review.SetRelabelAssetType(review.Empty("job", at), "d2", str("gizmo"), at)
	p = review.SetAccepted(p, "d4", flag(false), at)

	assert.Equal(t, []Row{{AssetType: "gizmo", Count: 2}, {AssetType: "widget", Count: 1}}, BuildRows(dets, p))
}

func TestBuildRowsScenarioB(t *testing.T) {
	dets := detections("d1", "b", "d2", "a")

	assert.Equal(t, []Row{{AssetType: "a", Count: 1}, {AssetType: "b", Count: 1}}, BuildRows(dets, review.Empty("job", at)))
}

func TestBuildRowsSortLaw(t *testing.T) {
	dets := detections(
		"1", "b", "2", "B", "3", "a", "4", "a", "5", "é", "6", "z", "7", "z", "8", "z", "9", "Z",
	)
	rows := BuildRows(dets, review.Empty("job", at))

	assert.Equal(t, []Row{
		{AssetType: "z", Count: 3},
		{AssetType: "a", Count: 2},
		{AssetType: "B", Count: 1},
		{AssetType: "Z", Count: 1},
		{AssetType: "b", Count: 1},
		{AssetType: "é", Count: 1},
	}, rows)
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		assert.True(t, prev.Count > cur.Count || (prev.Count == cur.Count && prev.AssetType < cur.AssetType))
	}
}

func TestBuildRowsDeterministic(t *testing.T) {
	dets := detections("d1", "x", "d2", "y", "d3", "x", "d4", "w", "d5", "y", "d6", "v")
	p := review.SetRelabelAssetType(review.Empty("job", at), "d6", str("x"), at)

	first, err := json.Marshal(BuildRows(dets, p))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := json.Marshal(BuildRows(dets, p))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestBuildRowsNothingAccepted(t *testing.T) {
	dets := detections("d1", "widget")
	p := review.SetAccepted(review.Empty("job", at), "d1", flag(false), at)

	rows := BuildRows(dets, p)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func loadFixtures(t *testing.T) (*job.Job, review.Payload) {
	t.Helper()
	raw, err := os.ReadFile("../contract/testdata/job.json")
	require.NoError(t, err)
	m, err := contract.ValidateOrFail(contract.JobManifestSchema, raw)
	require.NoError(t, err)

	raw, err = os.ReadFile("../contract/testdata/detections.json")
	require.NoError(t, err)
	d, err := contract.ValidateOrFail(contract.DetectionsDocumentSchema, raw)
	require.NoError(t, err)

	j, err := job.Assemble(context.Background(), m, d)
	require.NoError(t, err)

	raw, err = os.ReadFile("../contract/testdata/review.json")
	require.NoError(t, err)
	p, err := review.Decode(raw)
	require.NoError(t, err)
	return j, p
}

func TestExport(t *testing.T) {
	j, p := loadFixtures(t)

	a, err := Export(j, "r1", p)
	require.NoError(t, err)
	assert.Equal(t, "0b6f3c2a-9d8e-4c7b-a6f5-e4d3c2b1a090-bom.json", a.FileName())

	out, err := a.MarshalIndent()
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "export_r1", out)
}

func TestExportUnknownRender(t *testing.T) {
	j, p := loadFixtures(t)

	_, err := Export(j, "r9", p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRenderNotFound))
}

func TestBuildDocument(t *testing.T) {
	j, p := loadFixtures(t)

	doc := BuildDocument(j.Detections, p)
	_, err := contract.ValidateOrFail(contract.BomDocumentSchema, doc)
	require.NoError(t, err)
	require.NoError(t, lineage.CheckBOM(context.Background(), j.Detections, doc))

	out, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	g := goldie.New(t)
	g.Assert(t, "document", out)

	again, err := json.MarshalIndent(BuildDocument(j.Detections, p), "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}
