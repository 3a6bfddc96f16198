package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/review"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/storage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/telemetry"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultDebounce is the quiet period before a canonical write.
const DefaultDebounce = 350 * time.Millisecond

// ErrClosed is returned by mutations on a closed session.
var ErrClosed = errors.New("review session closed")

// Config describes the stores and timing of review sessions.
type Config struct {
	Local        storage.BlobStore
	Canonical    storage.BlobStore // nil keeps reviews local only
	Debounce     time.Duration
	LoadRetries  int
	WriteTimeout time.Duration

	Logger     *slog.Logger
	Now        func() time.Time
	AfterFunc  AfterFunc
	NewBackOff func() backoff.BackOff
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Loader returns the load precedence of c: canonical first, then local.
func (c Config) Loader() *Loader {
	return &Loader{
		Steps: []Step{
			{Name: "canonical", Store: c.Canonical, Retries: c.LoadRetries},
			{Name: "local", Store: c.Local},
		},
		Logger:     c.Logger,
		Now:        c.Now,
		NewBackOff: c.NewBackOff,
	}
}

// Session is the live review of one job. Every mutation applies a pure
// transition, writes the local store synchronously and schedules a
// debounced canonical write of the new state.
type Session struct {
	cfg      Config
	jobID    string
	source   string
	logger   *slog.Logger
	debounce *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	payload review.Payload
	closed  bool
	seq     uint64

	// writeMu serialises canonical writes; written is the newest snapshot
	// sequence handed to the canonical store.
	writeMu sync.Mutex
	written uint64
}

// Open loads the job's overlay and starts a session on it.
func Open(ctx context.Context, jobID string, cfg Config) (*Session, error) {
	p, source, err := cfg.Loader().Load(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("open review %s: %w", jobID, err)
	}

	delay := cfg.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		cfg:      cfg,
		jobID:    jobID,
		source:   source,
		logger:   cfg.logger().With("job_id", jobID),
		debounce: NewDebouncer(delay, cfg.AfterFunc),
		ctx:      sctx,
		cancel:   cancel,
		payload:  p,
	}
	s.logger.Info("review session opened", "source", source, "instances", p.Len())
	return s, nil
}

// JobID returns the reviewed job.
func (s *Session) JobID() string { return s.jobID }

// Source names the store the initial overlay came from.
func (s *Session) Source() string { return s.source }

// Payload returns the current overlay.
func (s *Session) Payload() review.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

// SetAccepted records an explicit acceptance, or clears it when accepted is nil.
func (s *Session) SetAccepted(detectionID string, accepted *bool) (review.Payload, error) {
	return s.apply(func(p review.Payload, at time.Time) review.Payload {
		return review.SetAccepted(p, detectionID, accepted, at)
	})
}

// SetRelabelAssetType records a relabel, or clears it when assetType is nil or blank.
func (s *Session) SetRelabelAssetType(detectionID string, assetType *string) (review.Payload, error) {
	return s.apply(func(p review.Payload, at time.Time) review.Payload {
		return review.SetRelabelAssetType(p, detectionID, assetType, at)
	})
}

// Clear drops every override of a detection.
func (s *Session) Clear(detectionID string) (review.Payload, error) {
	return s.apply(func(p review.Payload, at time.Time) review.Payload {
		return review.Clear(p, detectionID, at)
	})
}

func (s *Session) apply(transition func(review.Payload, time.Time) review.Payload) (review.Payload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.payload, ErrClosed
	}

	next := transition(s.payload, s.cfg.now())
	s.payload = next
	s.seq++
	seq := s.seq

	data, err := json.Marshal(next)
	if err != nil {
		s.logger.Error("review encode failed", "error", err)
		return next, nil
	}
	if s.cfg.Local != nil {
		if err := s.cfg.Local.Put(s.ctx, storage.ReviewKey(s.jobID), data); err != nil {
			s.logger.Warn("local review write failed", "error", err)
		}
	}
	if s.cfg.Canonical != nil {
		s.debounce.Schedule(func() { s.writeCanonical(seq, data) })
	}
	return next, nil
}

// writeCanonical sends snapshot seq to the canonical store. Writes run one
// at a time and a snapshot older than one already sent is dropped, so a
// slow write can never overwrite a newer one.
func (s *Session) writeCanonical(seq uint64, data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if seq <= s.written {
		s.logger.Debug("stale canonical review write dropped", "seq", seq, "written", s.written)
		return
	}
	s.written = seq

	ctx := s.ctx
	if s.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
	}
	ctx, span := tracer.Start(ctx, "review.canonical_write")
	defer span.End()
	span.SetAttributes(attribute.String("job_id", s.jobID))

	if err := s.cfg.Canonical.Put(ctx, storage.ReviewKey(s.jobID), data); err != nil {
		span.SetStatus(codes.Error, err.Error())
		telemetry.RecordCanonicalWriteFailure(ctx, fmt.Sprint(s.cfg.Canonical))
		s.logger.Warn("canonical review write failed", "error", err)
		return
	}
	s.logger.Debug("canonical review written", "bytes", len(data))
}

// Pending reports whether a canonical write is waiting for its debounce window.
func (s *Session) Pending() bool {
	return s.debounce.Pending()
}

// Flush performs the pending canonical write now.
func (s *Session) Flush() bool {
	return s.debounce.Flush()
}

// Close ends the session, dropping any pending canonical write. The
// local store already holds the latest state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.debounce.Cancel() {
		s.logger.Info("pending canonical review write cancelled")
	}
	s.cancel()
}
