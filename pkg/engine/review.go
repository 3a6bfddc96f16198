package engine

import (
	"context"
	"fmt"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/bom"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/contract"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/job"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review/session"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SessionConfig is the review session setup derived from the engine's
// stores and config.
func (e *Engine) SessionConfig() session.Config {
	return session.Config{
		Local:        e.Local,
		Canonical:    e.Canonical,
		Debounce:     e.config.Review.Debounce,
		LoadRetries:  e.config.Review.LoadRetries,
		WriteTimeout: e.config.Review.WriteTimeout,
		Logger:       e.Logger,
		Now:          e.now,
	}
}

// LoadReview resolves a job's review overlay without opening a session.
func (e *Engine) LoadReview(ctx context.Context, jobID string) (review.Payload, string, error) {
	return e.SessionConfig().Loader().Load(ctx, jobID)
}

// OpenReview starts an editing session on a job's review overlay.
func (e *Engine) OpenReview(ctx context.Context, jobID string) (*session.Session, error) {
	return session.Open(ctx, jobID, e.SessionConfig())
}

// Workspace returns a reviewer workspace over the engine's stores.
func (e *Engine) Workspace() *session.Workspace {
	return session.NewWorkspace(e.SessionConfig())
}

// BuildBOM derives the validated BOM document of a job.
func (e *Engine) BuildBOM(ctx context.Context, j *job.Job, p review.Payload) (doc contract.BomDocument, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.BuildBOM")
	defer span.End()
	defer e.recoverPanic(ctx, "build_bom", &err)
	span.SetAttributes(attribute.String("job_id", j.ID()))

	doc = bom.BuildDocument(j.Detections, p)
	if _, err = contract.ValidateOrFail(contract.BomDocumentSchema, doc); err != nil {
		telemetry.RecordContractViolation(ctx, contract.BomDocumentSchema.Name())
		span.SetStatus(codes.Error, err.Error())
		return contract.BomDocument{}, fmt.Errorf("bom %s: %w", j.ID(), err)
	}
	if err = lineage.CheckBOM(ctx, j.Detections, doc); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return contract.BomDocument{}, fmt.Errorf("bom %s: %w", j.ID(), err)
	}

	hash, err := contract.ContentHash(doc)
	if err != nil {
		return contract.BomDocument{}, err
	}
	span.SetAttributes(attribute.Int("components", len(doc.Components)), attribute.String("content_hash", hash))
	e.Logger.Info("bom built", "job_id", j.ID(), "components", len(doc.Components), "content_hash", hash)
	return doc, nil
}

// Export builds the BOM artifact of one render.
func (e *Engine) Export(ctx context.Context, j *job.Job, renderID string, p review.Payload) (bom.Artifact, error) {
	_, span := e.Tracer.Start(ctx, "Engine.Export")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", j.ID()), attribute.String("render_id", renderID))

	a, err := bom.Export(j, renderID, p)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return bom.Artifact{}, err
	}
	e.Logger.Info("bom exported", "job_id", j.ID(), "render_id", renderID, "rows", len(a.BOM))
	return a, nil
}
