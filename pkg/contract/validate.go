package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Schema binds a rule tree to the Go type a valid document decodes into.
type Schema[T any] struct {
	name string
	rule Rule
}

// NewSchema declares a named document schema.
func NewSchema[T any](name string, rule Rule) Schema[T] {
	return Schema[T]{name: name, rule: rule}
}

// Name returns the document name used in error messages.
func (s Schema[T]) Name() string {
	return s.name
}

// Result is the outcome of Validate: either a typed value or the complete
// list of violations.
type Result[T any] struct {
	Value T
	Err   *ValidationError
}

// OK reports whether validation succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Validate checks input against s. Input may be a decoded generic value
// (maps, slices, scalars), raw JSON bytes, or any JSON-marshalable Go value.
// It never panics and never returns a partially valid value.
func Validate[T any](s Schema[T], input any) Result[T] {
	doc, err := toGeneric(input)
	if err != nil {
		return failed[T](s.name, Violation{Message: err.Error()})
	}

	var vs Violations
	s.rule("", doc, &vs)
	if len(vs) > 0 {
		return Result[T]{Err: &ValidationError{Schema: s.name, Violations: vs}}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return failed[T](s.name, Violation{Message: fmt.Sprintf("re-encode: %v", err)})
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return failed[T](s.name, Violation{Message: fmt.Sprintf("decode: %v", err)})
	}
	return Result[T]{Value: out}
}

// ValidateOrFail is Validate for call sites that cannot continue without a
// valid document. The error wraps ErrContractViolation.
func ValidateOrFail[T any](s Schema[T], input any) (T, error) {
	res := Validate(s, input)
	if !res.OK() {
		var zero T
		return zero, res.Err
	}
	return res.Value, nil
}

// ValidateJSON validates raw JSON bytes.
func ValidateJSON[T any](s Schema[T], data []byte) Result[T] {
	return Validate(s, json.RawMessage(data))
}

// DecodeDocument decodes JSON or YAML bytes into a generic value. The
// format is picked from the file extension; anything that is not .yaml or
// .yml is treated as JSON.
func DecodeDocument(name string, data []byte) (any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("malformed yaml: %w", err)
		}
		return normalize(doc), nil
	default:
		return decodeJSON(data)
	}
}

func failed[T any](schema string, v Violation) Result[T] {
	return Result[T]{Err: &ValidationError{Schema: schema, Violations: []Violation{v}}}
}

func toGeneric(input any) (any, error) {
	switch v := input.(type) {
	case json.RawMessage:
		return decodeJSON(v)
	case []byte:
		return decodeJSON(v)
	case nil, string, bool, float64, json.Number, map[string]any, []any, map[any]any:
		return normalize(v), nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("unencodable input: %w", err)
		}
		return decodeJSON(raw)
	}
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("malformed json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("malformed json: trailing data")
	}
	return doc, nil
}

// normalize rewrites YAML-flavoured values into the shapes the rules expect.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
