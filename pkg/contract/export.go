package contract

// BomRow is one rolled-up line of an exported BOM.
type BomRow struct {
	AssetType string `json:"assetType"`
	Count     int    `json:"count"`
}

// ExportArtifact is the downloadable BOM for one render of a job.
type ExportArtifact struct {
	JobID     string   `json:"jobId"`
	UpdatedAt string   `json:"updatedAt"`
	RenderID  string   `json:"renderId"`
	BOM       []BomRow `json:"bom"`
}

// ExportArtifactSchema validates exported BOM artifacts.
var ExportArtifactSchema = NewSchema[ExportArtifact]("bom export", Object(
	Required("jobId", String(1)),
	Required("updatedAt", DateTime()),
	Required("renderId", String(1)),
	Required("bom", All(
		Array(Object(
			Required("assetType", String(1)),
			Required("count", Integer(1, 1<<31-1)),
		)),
		UniqueBy("assetType"),
	)),
))
