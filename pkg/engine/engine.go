package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/config"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/lineage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/storage"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/telemetry"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Engine is the runtime core: stores, lineage rules and telemetry shared
// by every command.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	// Review stores. Canonical is nil when reviews stay local.
	Local     storage.BlobStore
	Canonical storage.BlobStore

	config        config.Config
	now           func() time.Time
	extraRules    *lineage.Checker
	skipTelemetry bool
	readers       []sdkmetric.Reader
	shutdown      func(context.Context) error
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Tracer: otel.Tracer("assetlens/engine"),
		config: config.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := config.Validate(e.config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if e.Logger == nil {
		e.Logger = NewLogger(e.config.Log)
	}
	slog.SetDefault(e.Logger)

	if !e.skipTelemetry && !e.config.Telemetry.Disabled {
		shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, e.config.Telemetry.OTelEndpoint, e.readers...)
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
		}
	}

	if e.Local == nil {
		e.Local = storage.NewLocalStore(e.config.Review.LocalDir)
	}
	if e.Canonical == nil && e.config.Review.CanonicalURL != "" {
		store, err := storage.Open(ctx, e.config.Review.CanonicalURL, e.AWSOptions())
		if err != nil {
			return nil, fmt.Errorf("canonical review store: %w", err)
		}
		e.Canonical = store
	}

	if len(e.config.Lineage.ExtraRules) > 0 {
		checker, err := lineage.NewChecker(e.config.Lineage.ExtraRules)
		if err != nil {
			return nil, fmt.Errorf("lineage.extra_rules: %w", err)
		}
		e.extraRules = checker
	}

	e.Logger.Debug("engine ready",
		"local_store", fmt.Sprint(e.Local),
		"canonical_store", fmt.Sprint(e.Canonical),
		"version", version.Current,
	)
	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.Logger = l
	}
}

// WithConfig sets raw config.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithStores replaces the review stores built from config.
func WithStores(local, canonical storage.BlobStore) Option {
	return func(e *Engine) {
		e.Local = local
		e.Canonical = canonical
	}
}

// WithClock sets the time source of review timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithoutTelemetry skips OpenTelemetry setup, for hosts that already have it.
func WithoutTelemetry() Option {
	return func(e *Engine) {
		e.skipTelemetry = true
	}
}

// WithMetricReader adds a reader to the meter provider.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(e *Engine) {
		e.readers = append(e.readers, r)
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() config.Config {
	return e.config
}

// Close flushes telemetry.
func (e *Engine) Close(ctx context.Context) error {
	if e.shutdown == nil {
		return nil
	}
	return e.shutdown(ctx)
}

// AWSOptions are the AWS settings used to open s3:// and dynamodb:// stores.
func (e *Engine) AWSOptions() storage.AWSOptions {
	return storage.AWSOptions{
		Region:   e.config.AWS.Region,
		Profile:  e.config.AWS.Profile,
		Endpoint: e.config.AWS.Endpoint,
	}
}

// NewLogger builds the process logger: JSON or text on stderr, with
// sensitive attributes redacted. Stdout is left to generated documents.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: redactSensitiveData,
	}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// recoverPanic turns a panic in a pipeline step into an error.
func (e *Engine) recoverPanic(ctx context.Context, step string, errp *error) {
	if r := recover(); r != nil {
		_, span := e.Tracer.Start(ctx, "CriticalPanic")
		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.step", step),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "step", step, "error", r, "stack", string(stack))
		*errp = fmt.Errorf("%s: panic: %v", step, r)
	}
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "private_key": true, "auth_token": true,
		"refresh_token": true, "credential": true, "session_token": true,
		"authorization": true,
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}
