// Package bom rolls reviewed detections up into a bill of materials.
//
// Every function here is deterministic: the same detections and review
// overlay always give byte-identical output.
package bom

import (
	"sort"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
)

// Row is one asset type and how many accepted detections carry it.
type Row = contract.BomRow

// BuildRows counts accepted detections per effective asset type. Rows are
// ordered by count descending, then asset type ascending by byte order.
func BuildRows(detections []contract.Detection, p review.Payload) []Row {
	counts := map[string]int{}
	for _, d := range detections {
		if !review.EffectiveAccepted(d, p) {
			continue
		}
		counts[review.EffectiveAssetType(d, p)]++
	}

	rows := make([]Row, 0, len(counts))
	for assetType, n := range counts {
		rows = append(rows, Row{AssetType: assetType, Count: n})
	}
	sortRows(rows)
	return rows
}

func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].AssetType < rows[j].AssetType
	})
}
