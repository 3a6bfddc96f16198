package bom

import (
	"sort"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
)

// BuildDocument derives the BOM document of a whole job. Each accepted
// detection becomes one component named after its effective asset type.
// Components follow the row order of BuildRows, then component id.
// Identity, provenance and createdAt are copied from the detections
// document.
func BuildDocument(doc contract.DetectionsDocument, p review.Payload) contract.BomDocument {
	rows := BuildRows(doc.Detections, p)
	rank := make(map[string]int, len(rows))
	for i, r := range rows {
		rank[r.AssetType] = i
	}

	components := make([]contract.BomComponent, 0, len(doc.Detections))
	for _, d := range doc.Detections {
		if !review.EffectiveAccepted(d, p) {
			continue
		}
		c := contract.BomComponent{
			ComponentID: d.DetectionID,
			Name:        review.EffectiveAssetType(d, p),
		}
		if d.AssetSHA256 != "" {
			c.Hashes = &contract.ComponentHashes{SHA256: d.AssetSHA256}
		}
		components = append(components, c)
	}
	sort.SliceStable(components, func(i, j int) bool {
		ri, rj := rank[components[i].Name], rank[components[j].Name]
		if ri != rj {
			return ri < rj
		}
		return components[i].ComponentID < components[j].ComponentID
	})

	return contract.BomDocument{
		SchemaVersion: contract.SchemaVersion,
		TraceID:       doc.TraceID,
		JobID:         doc.JobID,
		CreatedAt:     doc.CreatedAt,
		Provenance:    doc.Provenance,
		Components:    components,
	}
}
