package review

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2025, 1, 15, 11, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Second)
	t2 = t0.Add(2 * time.Second)
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
func det(id, kind string) contract.Detection {
	return contract.Detection{DetectionID: id, Kind: kind, AssetURI: "renders/r.png", Score: 0.9}
}

func TestEmptyPayloadDefaults(t *testing.T) {
	p := Empty("job-1", t0)
	d := det("d1", "widget")

	assert.Equal(t, 0, p.Len())
	assert.True(t, EffectiveAccepted(d, p))
	assert.Equal(t, "widget", EffectiveAssetType(d, p))
}

func TestSetAcceptedPreservesRelabel(t *testing.T) {
	p := SetRelabelAssetType(Empty("job-1", t0), "d1", strPtr("gizmo"), t1)
	p = SetAccepted(p, "d1", boolPtr(false), t2)

	inst, ok := p.Lookup("d1")
	require.True(t, ok)
	require.NotNil(t, inst.Accepted)
	assert.False(t, *inst.Accepted)
	require.NotNil(t, inst.RelabelAssetType)
	assert.Equal(t, "gizmo", *inst.RelabelAssetType)
	assert.Equal(t, t2, p.UpdatedAt)
}

func TestSetRelabelPreservesAcceptance(t *testing.T) {
	p := SetAccepted(Empty("job-1", t0), "d1", boolPtr(true), t1)
	p = SetRelabelAssetType(p, "d1", strPtr("  bracket \t"), t2)

	inst, ok := p.Lookup("d1")
	require.True(t, ok)
	assert.True(t, *inst.Accepted)
	assert.Equal(t, "bracket", *inst.RelabelAssetType)
	assert.Equal(t, "bracket", EffectiveAssetType(det("d1", "widget"), p))
}

func TestBlankRelabelClears(t *testing.T) {
	for _, label := range []*string{nil, strPtr(""), strPtr("   ")} {
		p := SetRelabelAssetType(Empty("job-1", t0), "d1", strPtr("gizmo"), t1)
		p = SetRelabelAssetType(p, "d1", label, t2)

		_, ok := p.Lookup("d1")
		assert.False(t, ok, "instance should be pruned")
		assert.Equal(t, 0, p.Len())
		assert.Equal(t, t2, p.UpdatedAt)
	}
}

func TestNormalizationLaw(t *testing.T) {
	p := SetAccepted(Empty("job-1", t0), "d1", boolPtr(false), t0)
	p = SetRelabelAssetType(p, "d1", strPtr("gizmo"), t0)

	p = SetRelabelAssetType(p, "d1", nil, t1)
	p = SetAccepted(p, "d1", nil, t2)

	_, ok := p.Lookup("d1")
	assert.False(t, ok)
	assert.Empty(t, p.Instances())
	assert.Empty(t, p.Wire().Instances)
}

func TestSetAcceptedIsIdempotent(t *testing.T) {
	base := SetRelabelAssetType(Empty("job-1", t0), "d2", strPtr("gizmo"), t0)

	for _, v := range []*bool{boolPtr(true), boolPtr(false), nil} {
		once := SetAccepted(base, "d1", v, t1)
		twice := SetAccepted(once, "d1", v, t2)

		assert.Equal(t, once.JobID, twice.JobID)
		assert.Equal(t, once.Instances(), twice.Instances())
	}
}

func TestTransitionsArePure(t *testing.T) {
	base := SetAccepted(Empty("job-1", t0), "d1", boolPtr(true), t0)
	before := base.Instances()

	_ = SetAccepted(base, "d1", boolPtr(false), t1)
	_ = SetRelabelAssetType(base, "d1", strPtr("gizmo"), t1)
	_ = Clear(base, "d1", t1)
	_ = SetAccepted(base, "d9", boolPtr(false), t1)

	assert.Equal(t, before, base.Instances())
	assert.Equal(t, t0, base.UpdatedAt)
	assert.True(t, *base.Instances()[0].Accepted)
}

func TestUpsertKeepsInsertionOrder(t *testing.T) {
	p := Empty("job-1", t0)
	p = SetAccepted(p, "d1", boolPtr(false), t0)
	p = SetAccepted(p, "d2", boolPtr(false), t0)
	p = SetAccepted(p, "d3", boolPtr(false), t0)
	p = SetRelabelAssetType(p, "d1", strPtr("gizmo"), t0)
	p = Clear(p, "d2", t0)

	var ids []string
	for _, inst := range p.Instances() {
		ids = append(ids, inst.DetectionID)
	}
	assert.Equal(t, []string{"d1", "d3"}, ids)
}

func TestExplicitAcceptanceWins(t *testing.T) {
	d := det("d1", "widget")
	p := SetAccepted(Empty("job-1", t0), "d1", boolPtr(false), t1)
	assert.False(t, EffectiveAccepted(d, p))

	p = SetAccepted(p, "d1", nil, t2)
	assert.True(t, EffectiveAccepted(d, p))
}

func TestPayloadJSON(t *testing.T) {
	p := SetRelabelAssetType(Empty("job-1", t0), "d2", strPtr("gizmo"), t1)
	p = SetAccepted(p, "d4", boolPtr(false), t2)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"jobId": "job-1",
		"updatedAt": "2025-01-15T11:00:02.000Z",
		"instances": [
			{"detectionId": "d2", "relabelAssetType": "gizmo"},
			{"detectionId": "d4", "accepted": false}
		]
	}`, string(data))

	var back Payload
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p.Instances(), back.Instances())
	assert.True(t, p.UpdatedAt.Equal(back.UpdatedAt))
}

func TestUpdatedAtSurvivesWireRoundTrip(t *testing.T) {
	for _, ts := range []string{
		"2025-01-15T11:02:03.004Z",
		"2025-01-15T11:02:03.004123Z",
		"2025-01-15T11:02:03.000000001Z",
	} {
		p, err := Decode([]byte(`{"jobId":"job-1","updatedAt":"` + ts + `","instances":[]}`))
		require.NoError(t, err, ts)
		assert.Equal(t, ts, p.Wire().UpdatedAt)
	}
}

func TestDecodeRejectsContractViolations(t *testing.T) {
	_, err := Decode([]byte(`{"jobId":"job-1","updatedAt":"2025-01-15T11:00:00Z","instances":[],"extra":1}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, contract.ErrContractViolation))

	_, err = Decode([]byte(`{"jobId":"job-1","updatedAt":"not a time","instances":[]}`))
	require.Error(t, err)
}

func TestDecodeDropsEmptyInstances(t *testing.T) {
	p, err := Decode([]byte(`{
		"jobId": "job-1",
		"updatedAt": "2025-01-15T11:00:00Z",
		"instances": [
			{"detectionId": "d1"},
			{"detectionId": "d2", "accepted": null, "relabelAssetType": null},
			{"detectionId": "d3", "accepted": true}
		]
	}`))
	require.NoError(t, err)
	require.Equal(t, 1, p.Len())
	_, ok := p.Lookup("d3")
	assert.True(t, ok)
}
