package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ordmap/pkg/config"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.MetricsHandler)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.NotNil(t, ctx)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_PrometheusHandler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true
	cfg.ServiceVersion = "1.2.3"
	cfg.Mode = observability.ModeStress

	providers, err := observability.Init(cfg)
	require.NoError(t, err)
	require.NotNil(t, providers.MetricsHandler)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	om, err := observability.NewOpMetrics(providers.Meter)
	require.NoError(t, err)

	om.RecordOp(context.Background(), "add", nil, time.Microsecond)
	om.AddEntries(context.Background(), 1)

	rec := httptest.NewRecorder()
	providers.MetricsHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ordmap_ops")
	assert.Contains(t, rec.Body.String(), "ordmap_entries")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInit_LoggerWritesToConfiguredOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogOutput = &buf
	cfg.Mode = observability.ModeReplay

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Logger.Info("hello")

	assert.Contains(t, buf.String(), `"service":"ordmap"`)
	assert.Contains(t, buf.String(), `"mode":"replay"`)
}

func TestFromSettings(t *testing.T) {
	t.Parallel()

	settings := &config.Config{
		Logging:   config.LoggingConfig{Level: "warn", Format: config.FormatJSON},
		Telemetry: config.TelemetryConfig{MetricsAddr: ":9464", SampleRatio: 0.5, ShutdownTimeout: time.Second},
	}

	cfg := observability.FromSettings(settings, observability.ModeBench, "v0.1.0")

	assert.Equal(t, "ordmap", cfg.ServiceName)
	assert.Equal(t, "v0.1.0", cfg.ServiceVersion)
	assert.Equal(t, observability.ModeBench, cfg.Mode)
	assert.True(t, cfg.Prometheus)
	assert.True(t, cfg.LogJSON)
	assert.InDelta(t, 0.5, cfg.SampleRatio, 0.001)
	assert.Equal(t, time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "WARN", cfg.LogLevel.String())
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t,
		map[string]string{"api-key": "abc", "tenant": "t1"},
		observability.ParseOTLPHeaders(" api-key = abc ,tenant=t1,broken"),
	)
}
