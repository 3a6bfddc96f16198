package contract

// Detection is one object found by the detection pipeline. Kind is the
// detector's label for the object.
type Detection struct {
	DetectionID string         `json:"detectionId"`
	Kind        string         `json:"kind"`
	AssetURI    string         `json:"assetUri"`
	AssetSHA256 string         `json:"assetSha256,omitempty"`
	Score       float64        `json:"score"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// DetectionsDocument is the sealed output of one detection run.
type DetectionsDocument struct {
	SchemaVersion string      `json:"schemaVersion"`
	TraceID       string      `json:"traceId"`
	JobID         string      `json:"jobId"`
	CreatedAt     string      `json:"createdAt"`
	Provenance    Provenance  `json:"provenance"`
	Detections    []Detection `json:"detections"`
}

var detectionRule = Object(
	Required("detectionId", UUID()),
	Required("kind", String(1)),
	Required("assetUri", String(1)),
	Optional("assetSha256", SHA256()),
	Required("score", Score()),
	Optional("metadata", Record()),
)

// DetectionSchema validates a single detection.
var DetectionSchema = NewSchema[Detection]("detection", detectionRule)

// DetectionsDocumentSchema validates detections documents.
var DetectionsDocumentSchema = NewSchema[DetectionsDocument]("detections document", envelope(
	Required("detections", All(Array(detectionRule), UniqueBy("detectionId"))),
))
