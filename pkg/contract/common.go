// Package contract validates the documents exchanged across AssetLens
// process boundaries: job manifests, detections, BOM documents, review
// payloads and exported BOM artifacts.
//
// Every schema is strict. Undeclared fields, version skew and malformed
// identifiers are reported together in one ValidationError; a document is
// either fully valid or rejected.
package contract

import "regexp"

// SchemaVersion is the literal every versioned document must carry.
const SchemaVersion = "1.0"

// CommitHashUnknown stands in for a commit hash when the build has no git metadata.
const CommitHashUnknown = "UNKNOWN"

var (
	sha256Pattern     = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	sha1Pattern       = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	commitHashPattern = regexp.MustCompile(`(?i)^(UNKNOWN|[0-9a-f]{7,40})$`)
)

// SHA256 accepts 64-char hex digests.
func SHA256() Rule {
	return Pattern(sha256Pattern, "expected a 64-char hex sha256")
}

// SHA1 accepts 40-char hex digests.
func SHA1() Rule {
	return Pattern(sha1Pattern, "expected a 40-char hex sha1")
}

// CommitHash accepts a 7 to 40 char git sha or UNKNOWN.
func CommitHash() Rule {
	return Pattern(commitHashPattern, "expected git sha or UNKNOWN")
}

// BasisPoints accepts integer thresholds in [0, 10000].
func BasisPoints() Rule {
	return Integer(0, 10000)
}

// Score accepts confidences in [0, 1].
func Score() Rule {
	return Number(0, 1)
}

// Provenance is the lineage block carried unchanged into every derived document.
type Provenance struct {
	PipelineName    string `json:"pipelineName"`
	PipelineVersion string `json:"pipelineVersion"`
	ModelName       string `json:"modelName"`
	ModelVersion    string `json:"modelVersion"`
	ConfigHash      string `json:"configHash"`
	CommitHash      string `json:"commitHash"`
	Seed            *int64 `json:"seed,omitempty"`
}

var provenanceRule = Object(
	Required("pipelineName", String(1)),
	Required("pipelineVersion", String(1)),
	Required("modelName", String(1)),
	Required("modelVersion", String(1)),
	Required("configHash", SHA256()),
	Required("commitHash", CommitHash()),
	Optional("seed", Integer(0, 1<<53)),
)

// ProvenanceRule validates a provenance block.
func ProvenanceRule() Rule {
	return provenanceRule
}

// ProvenanceSchema validates a standalone provenance block.
var ProvenanceSchema = NewSchema[Provenance]("provenance", provenanceRule)

// envelope returns the fields shared by manifest, detections and BOM documents.
func envelope(extra ...Field) Rule {
	fields := []Field{
		Required("schemaVersion", Literal(SchemaVersion)),
		Required("traceId", UUID()),
		Required("jobId", UUID()),
		Required("createdAt", DateTime()),
		Required("provenance", provenanceRule),
	}
	return Object(append(fields, extra...)...)
}
