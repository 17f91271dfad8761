package observability_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
	"github.com/Sumatoshi-tech/ordmap/pkg/sortedmap"
)

func newTestMetrics(t *testing.T) (*observability.OpMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	om, err := observability.NewOpMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return om, reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	t.Fatalf("metric %q not collected", name)

	return metricdata.Metrics{}
}

func sumByAttr(t *testing.T, m metricdata.Metrics, key string) map[string]int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	out := make(map[string]int64)

	for _, dp := range sum.DataPoints {
		value, _ := dp.Attributes.Value(attribute.Key(key))
		out[value.AsString()] += dp.Value
	}

	return out
}

func TestOpMetrics_RecordOpClassifiesStatus(t *testing.T) {
	t.Parallel()

	om, reader := newTestMetrics(t)
	ctx := context.Background()

	om.RecordOp(ctx, "get", nil, time.Microsecond)
	om.RecordOp(ctx, "get", fmt.Errorf("get 4: %w", sortedmap.ErrKeyNotFound), time.Microsecond)
	om.RecordOp(ctx, "add", fmt.Errorf("add 1: %w", sortedmap.ErrDuplicateKey), time.Microsecond)
	om.RecordOp(ctx, "add", sortedmap.ErrInvalidKey, time.Microsecond)

	byStatus := sumByAttr(t, collectMetric(t, reader, "ordmap.ops.total"), "status")
	assert.Equal(t, map[string]int64{"ok": 1, "miss": 1, "error": 2}, byStatus)

	byReason := sumByAttr(t, collectMetric(t, reader, "ordmap.errors.total"), "reason")
	assert.Equal(t, map[string]int64{"duplicate_key": 1, "invalid_key": 1}, byReason)
}

func TestOpMetrics_DurationHistogram(t *testing.T) {
	t.Parallel()

	om, reader := newTestMetrics(t)

	om.RecordOp(context.Background(), "set", nil, 2*time.Microsecond)
	om.RecordOp(context.Background(), "set", nil, 4*time.Microsecond)

	m := collectMetric(t, reader, "ordmap.op.duration.seconds")
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.InDelta(t, 6e-6, hist.DataPoints[0].Sum, 1e-9)
}

func TestOpMetrics_Time(t *testing.T) {
	t.Parallel()

	om, reader := newTestMetrics(t)
	boom := errors.New("boom")

	require.NoError(t, om.Time(context.Background(), "validate", func() error { return nil }))
	require.ErrorIs(t, om.Time(context.Background(), "validate", func() error { return boom }), boom)

	byReason := sumByAttr(t, collectMetric(t, reader, "ordmap.errors.total"), "reason")
	assert.Equal(t, map[string]int64{"other": 1}, byReason)
}

func TestOpMetrics_Entries(t *testing.T) {
	t.Parallel()

	om, reader := newTestMetrics(t)
	ctx := context.Background()

	om.AddEntries(ctx, 5)
	om.AddEntries(ctx, -2)
	om.AddEntries(ctx, 0)

	total := sumByAttr(t, collectMetric(t, reader, "ordmap.entries"), "op")
	assert.Equal(t, map[string]int64{"": 3}, total)
}
