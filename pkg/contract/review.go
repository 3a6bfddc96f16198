package contract

// ReviewInstance is the wire form of one sparse override.
type ReviewInstance struct {
	DetectionID      string  `json:"detectionId"`
	Accepted         *bool   `json:"accepted,omitempty"`
	RelabelAssetType *string `json:"relabelAssetType,omitempty"`
}

// ReviewPayload is the wire form of a job's review overlay.
type ReviewPayload struct {
	JobID     string           `json:"jobId"`
	UpdatedAt string           `json:"updatedAt"`
	Instances []ReviewInstance `json:"instances"`
}

var reviewInstanceRule = Object(
	Required("detectionId", String(1)),
	Optional("accepted", Nullable(Bool())),
	Optional("relabelAssetType", Nullable(String(1))),
)

// ReviewPayloadSchema validates review payloads. Job ids are opaque here:
// review state may belong to jobs that predate UUID job ids.
var ReviewPayloadSchema = NewSchema[ReviewPayload]("review payload", Object(
	Required("jobId", String(1)),
	Required("updatedAt", DateTime()),
	Required("instances", All(Array(reviewInstanceRule), UniqueBy("detectionId"))),
))
