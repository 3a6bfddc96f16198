package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/GeorgeMcIntyre-Web/AssetLens"

type instruments struct {
	canonicalWriteFailures metric.Int64Counter
	loadFallbacks          metric.Int64Counter
	contractViolations     metric.Int64Counter
}

var (
	instOnce sync.Once
	inst     instruments
)

// counters are created against the global meter provider on first use, so
// Init must run before the first recorded value to export it.
func counters() instruments {
	instOnce.Do(func() {
		m := otel.Meter(meterName)
		inst.canonicalWriteFailures, _ = m.Int64Counter("assetlens.review.canonical_write_failures",
			metric.WithDescription("Debounced canonical review writes that failed"))
		inst.loadFallbacks, _ = m.Int64Counter("assetlens.review.load_fallbacks",
			metric.WithDescription("Review loads served by a store other than the first"))
		inst.contractViolations, _ = m.Int64Counter("assetlens.contract.violations",
			metric.WithDescription("Documents rejected by contract validation"))
	})
	return inst
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCanonicalWriteFailure counts a failed canonical review write.
func RecordCanonicalWriteFailure(ctx context.Context, store string) {
	add(ctx, counters().canonicalWriteFailures, attribute.String("store", store))
}

// RecordLoadFallback counts a review load resolved by a lower-precedence
// step. source is the step that served it, or "empty".
func RecordLoadFallback(ctx context.Context, source string) {
	add(ctx, counters().loadFallbacks, attribute.String("source", source))
}

// RecordContractViolation counts a rejected document.
func RecordContractViolation(ctx context.Context, schema string) {
	add(ctx, counters().contractViolations, attribute.String("schema", schema))
}
