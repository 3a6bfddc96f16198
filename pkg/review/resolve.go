package review

import "github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"

// EffectiveAccepted is the reviewer's explicit decision, or true when there is none.
func EffectiveAccepted(d contract.Detection, p Payload) bool {
	if inst, ok := p.Lookup(d.DetectionID); ok && inst.Accepted != nil {
		return *inst.Accepted
	}
	return true
}

// EffectiveAssetType is the reviewer's relabel, or the detector's kind when there is none.
func EffectiveAssetType(d contract.Detection, p Payload) string {
	if inst, ok := p.Lookup(d.DetectionID); ok && inst.RelabelAssetType != nil && *inst.RelabelAssetType != "" {
		return *inst.RelabelAssetType
	}
	return d.Kind
}
