// Package session keeps a job's review overlay in sync between a canonical
// store and a local fallback store while a reviewer edits it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/storage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/telemetry"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("assetlens/review/session")

// SourceEmpty names the result of a load that no store could serve.
const SourceEmpty = "empty"

// Step is one store in the load precedence list.
type Step struct {
	Name    string
	Store   storage.BlobStore
	Retries int // extra attempts on transport errors; not-found is never retried
}

// Loader resolves a job's review overlay by trying its steps in order.
// The first step returning a valid payload for the job wins, so a
// reachable canonical store wins over a newer local cache. A missing,
// unreachable or invalid entry falls through to the next step. When no
// step yields a payload the result is review.Empty.
type Loader struct {
	Steps      []Step
	Logger     *slog.Logger
	Now        func() time.Time
	NewBackOff func() backoff.BackOff

	// RecordFallback is told when a load that tried a store was served by
	// a later step or by review.Empty. Defaults to telemetry.RecordLoadFallback.
	RecordFallback func(ctx context.Context, source string)
}

// Load never fails for store reasons; only a cancelled ctx is returned as
// an error. The second result names the step that served the payload.
func (l *Loader) Load(ctx context.Context, jobID string) (review.Payload, string, error) {
	ctx, span := tracer.Start(ctx, "review.load")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", jobID))

	tried := false
	for _, step := range l.Steps {
		if step.Store == nil {
			continue
		}
		p, err := l.loadStep(ctx, step, jobID)
		if err == nil {
			span.SetAttributes(attribute.String("source", step.Name))
			if tried {
				l.recordFallback(ctx, step.Name)
			}
			return p, step.Name, nil
		}
		tried = true
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return review.Payload{}, "", ctxErr
		}
		if errors.Is(err, storage.ErrNotFound) {
			l.logger().Debug("no review in store", "job_id", jobID, "store", step.Name)
		} else {
			l.logger().Warn("review load failed, falling back", "job_id", jobID, "store", step.Name, "error", err)
		}
	}

	span.SetAttributes(attribute.String("source", SourceEmpty))
	if tried {
		l.recordFallback(ctx, SourceEmpty)
	}
	return review.Empty(jobID, l.now()), SourceEmpty, nil
}

func (l *Loader) loadStep(ctx context.Context, step Step, jobID string) (review.Payload, error) {
	key := storage.ReviewKey(jobID)
	var b backoff.BackOff = &backoff.StopBackOff{}
	if step.Retries > 0 {
		b = backoff.WithMaxRetries(l.newBackOff(), uint64(step.Retries))
	}

	data, err := backoff.RetryWithData(func() ([]byte, error) {
		data, err := step.Store.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return review.Payload{}, err
	}

	p, err := review.Decode(data)
	if err != nil {
		telemetry.RecordContractViolation(ctx, "review payload")
		return review.Payload{}, fmt.Errorf("%s: %w", step.Name, err)
	}
	if p.JobID != jobID {
		return review.Payload{}, fmt.Errorf("%s: payload belongs to job %q", step.Name, p.JobID)
	}
	return p, nil
}

func (l *Loader) newBackOff() backoff.BackOff {
	if l.NewBackOff != nil {
		return l.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	return b
}

func (l *Loader) recordFallback(ctx context.Context, source string) {
	if l.RecordFallback != nil {
		l.RecordFallback(ctx, source)
		return
	}
	telemetry.RecordLoadFallback(ctx, source)
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loader) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
