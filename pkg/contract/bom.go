package contract

// ComponentHashes holds optional digests of a BOM component.
type ComponentHashes struct {
	SHA256 string `json:"sha256,omitempty"`
	SHA1   string `json:"sha1,omitempty"`
}

// BomComponent is one entry of a BOM document.
type BomComponent struct {
	ComponentID  string           `json:"componentId"`
	Name         string           `json:"name"`
	Version      string           `json:"version,omitempty"`
	Purl         string           `json:"purl,omitempty"`
	Licenses     []string         `json:"licenses,omitempty"`
	Hashes       *ComponentHashes `json:"hashes,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
}

// BomDocument is the derived bill of materials for a job.
type BomDocument struct {
	SchemaVersion string         `json:"schemaVersion"`
	TraceID       string         `json:"traceId"`
	JobID         string         `json:"jobId"`
	CreatedAt     string         `json:"createdAt"`
	Provenance    Provenance     `json:"provenance"`
	Components    []BomComponent `json:"components"`
}

var bomComponentRule = Object(
	Required("componentId", String(1)),
	Required("name", String(1)),
	Optional("version", String(1)),
	Optional("purl", String(1)),
	Optional("licenses", Array(String(1))),
	Optional("hashes", Object(
		Optional("sha256", SHA256()),
		Optional("sha1", SHA1()),
	)),
	Optional("dependencies", Array(String(1))),
)

// BomComponentSchema validates a single BOM component.
var BomComponentSchema = NewSchema[BomComponent]("bom component", bomComponentRule)

// BomDocumentSchema validates BOM documents.
var BomDocumentSchema = NewSchema[BomDocument]("bom document", envelope(
	Required("components", Array(bomComponentRule)),
))
