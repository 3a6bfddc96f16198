package contract

// JobInput locates the asset a job was run against.
type JobInput struct {
	URI    string `json:"uri"`
	SHA256 string `json:"sha256,omitempty"`
}

// JobOptions holds the deterministic knobs of a pipeline run.
// Thresholds are basis points (0-10000).
type JobOptions struct {
	Seed                  *int64 `json:"seed,omitempty"`
	ScoreThresholdBps     *int   `json:"scoreThresholdBps,omitempty"`
	NMSThresholdBps       *int   `json:"nmsThresholdBps,omitempty"`
	MaxDetectionsPerImage *int   `json:"maxDetectionsPerImage,omitempty"`
}

// JobManifest is the immutable description of one pipeline job.
type JobManifest struct {
	SchemaVersion string     `json:"schemaVersion"`
	TraceID       string     `json:"traceId"`
	JobID         string     `json:"jobId"`
	CreatedAt     string     `json:"createdAt"`
	Provenance    Provenance `json:"provenance"`
	Input         JobInput   `json:"input"`
	Options       JobOptions `json:"options"`
}

// JobManifestSchema validates job manifests.
var JobManifestSchema = NewSchema[JobManifest]("job manifest", envelope(
	Required("input", Object(
		Required("uri", String(1)),
		Optional("sha256", SHA256()),
	)),
	Required("options", Object(
		Optional("seed", Integer(0, 1<<53)),
		Optional("scoreThresholdBps", BasisPoints()),
		Optional("nmsThresholdBps", BasisPoints()),
		Optional("maxDetectionsPerImage", Integer(1, 1000)),
	)),
))
