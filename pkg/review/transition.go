package review

import (
	"strings"
	"time"
)

// SetAccepted sets (or, with nil, clears) the acceptance override of a
// detection. Any relabel override is kept.
func SetAccepted(p Payload, detectionID string, accepted *bool, at time.Time) Payload {
	inst, _ := p.Lookup(detectionID)
	inst.DetectionID = detectionID
	inst.Accepted = cloneBool(accepted)
	return touch(p.put(inst), at)
}

// SetRelabelAssetType sets the relabel override of a detection. The label
// is trimmed; nil or blank clears the override. Any acceptance override is
// kept.
func SetRelabelAssetType(p Payload, detectionID string, label *string, at time.Time) Payload {
	inst, _ := p.Lookup(detectionID)
	inst.DetectionID = detectionID
	inst.RelabelAssetType = nil
	if label != nil {
		if trimmed := strings.TrimSpace(*label); trimmed != "" {
			inst.RelabelAssetType = &trimmed
		}
	}
	return touch(p.put(inst), at)
}

// Clear drops every override of a detection.
func Clear(p Payload, detectionID string, at time.Time) Payload {
	return touch(p.put(Instance{DetectionID: detectionID}), at)
}

func touch(p Payload, at time.Time) Payload {
	p.UpdatedAt = at.UTC()
	return p
}
