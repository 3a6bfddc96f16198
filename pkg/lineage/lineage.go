// Package lineage checks that documents derived from one another agree on
// the identity fields they share: trace id, job id and provenance.
//
// Rules are CEL expressions over the decoded documents and must evaluate to
// true. A rule that evaluates to false, or that fails to evaluate, is
// reported as a failure.
package lineage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/google/cel-go/cel"
)

// ErrLineage is wrapped by every lineage check failure.
var ErrLineage = errors.New("lineage mismatch")

// Rule is a named CEL assertion.
type Rule struct {
	ID        string `json:"id" yaml:"id" mapstructure:"id"`
	Condition string `json:"condition" yaml:"condition" mapstructure:"condition"`
	Message   string `json:"message" yaml:"message" mapstructure:"message"`
}

// Failure records one rule that did not hold.
type Failure struct {
	RuleID  string
	Message string
}

// Error lists all failed rules of a check.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.RuleID, f.Message))
	}
	return fmt.Sprintf("%s: %s", ErrLineage, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error { return ErrLineage }

type program struct {
	rule Rule
	prg  cel.Program
}

// Checker evaluates a compiled rule set. Rules run in declaration order.
type Checker struct {
	env      *cel.Env
	programs []program
}

// Variables every rule may reference. Absent documents are bound to an
// empty map.
var variables = []string{"manifest", "detections", "bom"}

// NewChecker compiles rules. A rule that does not compile or does not
// return a bool is rejected.
func NewChecker(rules []Rule) (*Checker, error) {
	opts := make([]cel.EnvOption, 0, len(variables))
	for _, v := range variables {
		opts = append(opts, cel.Variable(v, cel.MapType(cel.StringType, cel.DynType)))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	c := &Checker{env: env}
	for _, r := range rules {
		ast, issues := env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("rule %s must return bool, got %s", r.ID, ast.OutputType())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		c.programs = append(c.programs, program{rule: r, prg: prg})
	}
	return c, nil
}

// Documents is the input of a check. Nil fields are bound as empty maps.
type Documents struct {
	Manifest   *contract.JobManifest
	Detections *contract.DetectionsDocument
	BOM        *contract.BomDocument
}

// Check evaluates every rule and returns an *Error listing the ones that
// failed, or nil.
func (c *Checker) Check(ctx context.Context, docs Documents) error {
	vars := map[string]any{}
	for name, doc := range map[string]any{
		"manifest":   docs.Manifest,
		"detections": docs.Detections,
		"bom":        docs.BOM,
	} {
		m, err := toMap(doc)
		if err != nil {
			return fmt.Errorf("lineage: bind %s: %w", name, err)
		}
		vars[name] = m
	}

	var failures []Failure
	for _, p := range c.programs {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, _, err := p.prg.ContextEval(ctx, vars)
		if err != nil {
			failures = append(failures, Failure{RuleID: p.rule.ID, Message: err.Error()})
			continue
		}
		if ok, _ := out.Value().(bool); !ok {
			failures = append(failures, Failure{RuleID: p.rule.ID, Message: p.rule.Message})
		}
	}
	if len(failures) > 0 {
		return &Error{Failures: failures}
	}
	return nil
}

func toMap(doc any) (map[string]any, error) {
	out := map[string]any{}
	switch d := doc.(type) {
	case *contract.JobManifest:
		if d == nil {
			return out, nil
		}
	case *contract.DetectionsDocument:
		if d == nil {
			return out, nil
		}
	case *contract.BomDocument:
		if d == nil {
			return out, nil
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JobRules tie a detections document to the manifest it was produced for.
var JobRules = []Rule{
	{ID: "trace_id", Condition: `manifest.traceId == detections.traceId`, Message: "detections trace id differs from manifest"},
	{ID: "job_id", Condition: `manifest.jobId == detections.jobId`, Message: "detections job id differs from manifest"},
	{ID: "provenance", Condition: `manifest.provenance == detections.provenance`, Message: "detections provenance differs from manifest"},
	{
		ID: "seed",
		Condition: `!has(manifest.options.seed) || !has(manifest.provenance.seed) ||
			manifest.options.seed == manifest.provenance.seed`,
		Message: "manifest options seed differs from provenance seed",
	},
}

// BOMRules tie a BOM document to the detections it was derived from.
var BOMRules = []Rule{
	{ID: "bom_trace_id", Condition: `bom.traceId == detections.traceId`, Message: "bom trace id differs from detections"},
	{ID: "bom_job_id", Condition: `bom.jobId == detections.jobId`, Message: "bom job id differs from detections"},
	{ID: "bom_provenance", Condition: `bom.provenance == detections.provenance`, Message: "bom provenance differs from detections"},
	{
		ID:        "bom_components",
		Condition: `bom.components.all(c, detections.detections.exists(d, d.detectionId == c.componentId))`,
		Message:   "bom component does not refer to a detection",
	},
}

var (
	jobChecker = sync.OnceValues(func() (*Checker, error) { return NewChecker(JobRules) })
	bomChecker = sync.OnceValues(func() (*Checker, error) { return NewChecker(BOMRules) })
)

// CheckJob verifies a detections document against its manifest.
func CheckJob(ctx context.Context, m contract.JobManifest, d contract.DetectionsDocument) error {
	c, err := jobChecker()
	if err != nil {
		return err
	}
	return c.Check(ctx, Documents{Manifest: &m, Detections: &d})
}

// CheckBOM verifies a BOM document against the detections it summarises.
func CheckBOM(ctx context.Context, d contract.DetectionsDocument, b contract.BomDocument) error {
	c, err := bomChecker()
	if err != nil {
		return err
	}
	return c.Check(ctx, Documents{Detections: &d, BOM: &b})
}
