package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/job"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ReadDocument reads a JSON or YAML file and validates it against schema.
func ReadDocument[T any](ctx context.Context, path string, schema contract.Schema[T]) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		return zero, err
	}
	doc, err := contract.DecodeDocument(path, data)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	v, err := contract.ValidateOrFail(schema, doc)
	if err != nil {
		telemetry.RecordContractViolation(ctx, schema.Name())
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// LoadJob reads a manifest and its detections document from disk and
// assembles the job.
func (e *Engine) LoadJob(ctx context.Context, manifestPath, detectionsPath string) (*job.Job, error) {
	m, err := ReadDocument(ctx, manifestPath, contract.JobManifestSchema)
	if err != nil {
		return nil, err
	}
	d, err := ReadDocument(ctx, detectionsPath, contract.DetectionsDocumentSchema)
	if err != nil {
		return nil, err
	}
	return e.Ingest(ctx, m, d)
}

// Ingest checks lineage between a validated manifest and detections
// document, including any configured extra rules, and assembles the job.
func (e *Engine) Ingest(ctx context.Context, m contract.JobManifest, d contract.DetectionsDocument) (j *job.Job, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Ingest")
	defer span.End()
	defer e.recoverPanic(ctx, "ingest", &err)
	span.SetAttributes(
		attribute.String("job_id", m.JobID),
		attribute.String("trace_id", m.TraceID),
		attribute.Int("detections", len(d.Detections)),
	)

	j, err = job.Assemble(ctx, m, d)
	if err == nil && e.extraRules != nil {
		if xerr := e.extraRules.Check(ctx, lineage.Documents{Manifest: &m, Detections: &d}); xerr != nil {
			j, err = nil, fmt.Errorf("assemble job %s: %w", m.JobID, xerr)
		}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, lineage.ErrLineage) {
			e.Logger.Warn("job rejected", "job_id", m.JobID, "error", err)
		}
		return nil, err
	}

	e.Logger.Info("job ingested",
		"job_id", j.ID(),
		"trace_id", m.TraceID,
		"renders", len(j.Renders),
		"detections", len(d.Detections),
	)
	return j, nil
}
