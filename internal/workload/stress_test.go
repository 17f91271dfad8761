package workload_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/ordmap/internal/workload"
	"github.com/Sumatoshi-tech/ordmap/pkg/config"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
)

func TestStress(t *testing.T) {
	t.Parallel()

	cfg := workload.StressConfig{Keys: 2000, KeySpace: 1 << 16, Seed: 7, ValidateEvery: 1, CheckBoundsEvery: 3}

	result, err := workload.Stress(context.Background(), cfg, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2000, result.Inserted)
	assert.Equal(t, 2000, result.Removed)
	assert.Equal(t, 4000, result.Validations)
	assert.Equal(t, 2*(2000/3), result.BoundChecks)
	assert.Positive(t, result.MaxHeight)
	assert.LessOrEqual(t, result.MaxHeight, 22)
}

func TestStressDenseKeySpace(t *testing.T) {
	t.Parallel()

	// Every key in the space is used, so bound probes hit both present keys
	// and the one past the end.
	cfg := workload.StressConfig{Keys: 500, KeySpace: 500, Seed: 3, ValidateEvery: 10, CheckBoundsEvery: 1}

	result, err := workload.Stress(context.Background(), cfg, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Validations)
	assert.Equal(t, 1000, result.BoundChecks)
}

func TestStressDeterministic(t *testing.T) {
	t.Parallel()

	cfg := workload.StressConfig{Keys: 300, KeySpace: 10000, Seed: 42, ValidateEvery: 1}

	first, err := workload.Stress(context.Background(), cfg, nil, nil, nil)
	require.NoError(t, err)

	second, err := workload.Stress(context.Background(), cfg, nil, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.MaxHeight, second.MaxHeight)
}

func TestStressRecordsMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	om, err := observability.NewOpMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	cfg := workload.StressConfig{Keys: 100, KeySpace: 1000, Seed: 1, ValidateEvery: 50}

	_, err = workload.Stress(context.Background(), cfg, om, nil, nil)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	ops := map[string]int64{}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "ordmap.ops.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("op")
				ops[op.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(100), ops["add"])
	assert.Equal(t, int64(100), ops["remove"])
	assert.Equal(t, int64(4), ops["validate"])
}

func TestStressCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := workload.StressConfig{Keys: 10, KeySpace: 100, Seed: 1}

	result, err := workload.Stress(ctx, cfg, nil, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Inserted)
}

func TestStressRejectsBadConfig(t *testing.T) {
	t.Parallel()

	_, err := workload.Stress(context.Background(), workload.StressConfig{Keys: 10, KeySpace: 5}, nil, nil, nil)
	require.ErrorIs(t, err, config.ErrInvalidKeySpace)
}

func TestStressConfigFrom(t *testing.T) {
	t.Parallel()

	cfg := workload.StressConfigFrom(config.WorkloadConfig{
		Keys: 1, KeySpace: 2, Seed: 3, ValidateEvery: 4, CheckBoundsEvery: 5,
	})

	assert.Equal(t, workload.StressConfig{Keys: 1, KeySpace: 2, Seed: 3, ValidateEvery: 4, CheckBoundsEvery: 5}, cfg)
}

func TestStressLogsPhases(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "ordmap", "", observability.ModeStress))

	cfg := workload.StressConfig{Keys: 20, KeySpace: 100, Seed: 5}

	_, err := workload.Stress(context.Background(), cfg, nil, logger, nil)
	require.NoError(t, err)

	var phases []string

	dec := json.NewDecoder(&buf)
	for dec.More() {
		var record map[string]any

		require.NoError(t, dec.Decode(&record))

		if record["msg"] == "phase done" {
			phase, _ := record["phase"].(string)
			phases = append(phases, phase)
		}
	}

	assert.Equal(t, []string{"insert", "remove"}, phases)
}
