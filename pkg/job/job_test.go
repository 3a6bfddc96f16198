package job

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures(t *testing.T) (contract.JobManifest, contract.DetectionsDocument) {
	t.Helper()
	raw, err := os.ReadFile("../contract/testdata/job.json")
	require.NoError(t, err)
	m, err := contract.ValidateOrFail(contract.JobManifestSchema, raw)
	require.NoError(t, err)

	raw, err = os.ReadFile("../contract/testdata/detections.json")
	require.NoError(t, err)
	d, err := contract.ValidateOrFail(contract.DetectionsDocumentSchema, raw)
	require.NoError(t, err)
	return m, d
}

func TestAssemble(t *testing.T) {
	m, d := fixtures(t)

	j, err := Assemble(context.Background(), m, d)
	require.NoError(t, err)
	assert.Equal(t, m.JobID, j.ID())
	require.Len(t, j.Renders, 2)

	r1, ok := j.Render("r1")
	require.True(t, ok)
	assert.Len(t, r1.Detections, 4)
	assert.Equal(t, "11111111-1111-4111-8111-111111111111", r1.Detections[0].DetectionID)

	r2, ok := j.Render("r2")
	require.True(t, ok)
	assert.Equal(t, "renders/render_0002.png", r2.AssetURI)
	assert.Len(t, r2.Detections, 1)

	_, ok = j.Render("r3")
	assert.False(t, ok)
}

func TestAssembleRejectsForeignDetections(t *testing.T) {
	m, d := fixtures(t)
	d.JobID = "00000000-0000-4000-8000-000000000000"

	_, err := Assemble(context.Background(), m, d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lineage.ErrLineage))
}

func TestGroupRendersOrdersByURI(t *testing.T) {
	renders := GroupRenders([]contract.Detection{
		{DetectionID: "a", AssetURI: "z.png"},
		{DetectionID: "b", AssetURI: "a.png"},
		{DetectionID: "c", AssetURI: "z.png"},
	})
	require.Len(t, renders, 2)
	assert.Equal(t, "a.png", renders[0].AssetURI)
	assert.Equal(t, "r1", renders[0].ID)
	assert.Equal(t, []string{"a", "c"}, []string{renders[1].Detections[0].DetectionID, renders[1].Detections[1].DetectionID})
	assert.Empty(t, GroupRenders(nil))
}
