package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Rule checks one decoded value located at path.
type Rule func(path string, v any, vs *Violations)

// Field declares one member of a strict object.
type Field struct {
	Name     string
	Rule     Rule
	Optional bool
}

// Required declares a field that must be present.
func Required(name string, r Rule) Field {
	return Field{Name: name, Rule: r}
}

// Optional declares a field that may be absent. Present values, including
// null, still go through r; wrap r in Nullable to admit null.
func Optional(name string, r Rule) Field {
	return Field{Name: name, Rule: r, Optional: true}
}

// Object accepts a JSON object holding exactly the declared fields.
// Undeclared keys are violations.
func Object(fields ...Field) Rule {
	declared := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		declared[f.Name] = struct{}{}
	}

	return func(path string, v any, vs *Violations) {
		obj, ok := v.(map[string]any)
		if !ok {
			vs.Add(path, "expected object, got %s", typeName(v))
			return
		}

		for _, f := range fields {
			val, present := obj[f.Name]
			if !present {
				if !f.Optional {
					vs.Add(join(path, f.Name), "required")
				}
				continue
			}
			f.Rule(join(path, f.Name), val, vs)
		}

		var unknown []string
		for k := range obj {
			if _, ok := declared[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			vs.Add(join(path, k), "unrecognized field")
		}
	}
}

// Record accepts any JSON object.
func Record() Rule {
	return func(path string, v any, vs *Violations) {
		if _, ok := v.(map[string]any); !ok {
			vs.Add(path, "expected object, got %s", typeName(v))
		}
	}
}

// Array accepts a JSON array whose elements all satisfy elem.
func Array(elem Rule) Rule {
	return func(path string, v any, vs *Violations) {
		items, ok := v.([]any)
		if !ok {
			vs.Add(path, "expected array, got %s", typeName(v))
			return
		}
		for i, item := range items {
			elem(fmt.Sprintf("%s[%d]", path, i), item, vs)
		}
	}
}

// UniqueBy rejects arrays where two objects share the same string key.
func UniqueBy(key string) Rule {
	return func(path string, v any, vs *Violations) {
		items, ok := v.([]any)
		if !ok {
			return
		}
		seen := make(map[string]int, len(items))
		for i, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			s, ok := obj[key].(string)
			if !ok {
				continue
			}
			if first, dup := seen[s]; dup {
				vs.Add(fmt.Sprintf("%s[%d].%s", path, i, key), "duplicate of %s[%d]", path, first)
				continue
			}
			seen[s] = i
		}
	}
}

// All applies every rule to the same value.
func All(rules ...Rule) Rule {
	return func(path string, v any, vs *Violations) {
		for _, r := range rules {
			r(path, v, vs)
		}
	}
}

// Nullable admits null in addition to whatever r admits.
func Nullable(r Rule) Rule {
	return func(path string, v any, vs *Violations) {
		if v == nil {
			return
		}
		r(path, v, vs)
	}
}

// String accepts strings of at least minLen bytes.
func String(minLen int) Rule {
	return func(path string, v any, vs *Violations) {
		s, ok := v.(string)
		if !ok {
			vs.Add(path, "expected string, got %s", typeName(v))
			return
		}
		if len(s) < minLen {
			vs.Add(path, "must contain at least %d character(s)", minLen)
		}
	}
}

// Literal accepts exactly want.
func Literal(want string) Rule {
	return func(path string, v any, vs *Violations) {
		s, ok := v.(string)
		if !ok || s != want {
			vs.Add(path, "expected literal %q, got %s", want, describe(v))
		}
	}
}

// Pattern accepts strings matching re.
func Pattern(re *regexp.Regexp, msg string) Rule {
	return func(path string, v any, vs *Violations) {
		s, ok := v.(string)
		if !ok {
			vs.Add(path, "expected string, got %s", typeName(v))
			return
		}
		if !re.MatchString(s) {
			vs.Add(path, "%s", msg)
		}
	}
}

// UUID accepts canonical 8-4-4-4-12 UUID strings.
func UUID() Rule {
	return func(path string, v any, vs *Violations) {
		s, ok := v.(string)
		if !ok {
			vs.Add(path, "expected string, got %s", typeName(v))
			return
		}
		if len(s) != 36 {
			vs.Add(path, "invalid uuid")
			return
		}
		if _, err := uuid.Parse(s); err != nil {
			vs.Add(path, "invalid uuid")
		}
	}
}

var dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// DateTime accepts RFC 3339 UTC timestamps ending in Z.
func DateTime() Rule {
	return func(path string, v any, vs *Violations) {
		switch t := v.(type) {
		case time.Time:
			return
		case string:
			if !dateTimePattern.MatchString(t) {
				vs.Add(path, "invalid datetime")
				return
			}
			if _, err := time.Parse(time.RFC3339Nano, t); err != nil {
				vs.Add(path, "invalid datetime")
			}
		default:
			vs.Add(path, "expected datetime string, got %s", typeName(v))
		}
	}
}

// Number accepts numbers within [lo, hi].
func Number(lo, hi float64) Rule {
	return func(path string, v any, vs *Violations) {
		f, ok := asNumber(v)
		if !ok {
			vs.Add(path, "expected number, got %s", typeName(v))
			return
		}
		if f < lo {
			vs.Add(path, "must be >= %s", formatFloat(lo))
		}
		if f > hi {
			vs.Add(path, "must be <= %s", formatFloat(hi))
		}
	}
}

// Integer accepts whole numbers within [lo, hi].
func Integer(lo, hi int64) Rule {
	return func(path string, v any, vs *Violations) {
		f, ok := asNumber(v)
		if !ok {
			vs.Add(path, "expected integer, got %s", typeName(v))
			return
		}
		if math.Trunc(f) != f {
			vs.Add(path, "expected integer, got %s", formatFloat(f))
			return
		}
		if f < float64(lo) {
			vs.Add(path, "must be >= %d", lo)
		}
		if f > float64(hi) {
			vs.Add(path, "must be <= %d", hi)
		}
	}
}

// Bool accepts true or false.
func Bool() Rule {
	return func(path string, v any, vs *Violations) {
		if _, ok := v.(bool); !ok {
			vs.Add(path, "expected boolean, got %s", typeName(v))
		}
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func asNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := asNumber(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	return typeName(v)
}
