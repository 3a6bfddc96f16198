package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCountersExport(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()

	shutdown, err := Init(ctx, "assetlens-test", "dev", "", reader)
	require.NoError(t, err)
	defer shutdown(ctx)

	RecordCanonicalWriteFailure(ctx, "s3://bucket")
	RecordCanonicalWriteFailure(ctx, "s3://bucket")
	RecordLoadFallback(ctx, "local")
	RecordContractViolation(ctx, "review payload")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), totals["assetlens.review.canonical_write_failures"])
	assert.Equal(t, int64(1), totals["assetlens.review.load_fallbacks"])
	assert.Equal(t, int64(1), totals["assetlens.contract.violations"])
}

func TestTracer(t *testing.T) {
	_, span := Tracer("assetlens/test").Start(context.Background(), "noop")
	span.End()
}
