// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for the ordmap commands.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Sumatoshi-tech/ordmap/pkg/config"
)

// AppMode identifies the command the binary was launched with.
type AppMode string

const (
	// ModeStress is the randomized stress workload.
	ModeStress AppMode = "stress"
	// ModeBench is the backend comparison.
	ModeBench AppMode = "bench"
	// ModeReplay is the scripted scenario runner.
	ModeReplay AppMode = "replay"
	// ModeCLI covers every other command.
	ModeCLI AppMode = "cli"
)

const (
	defaultServiceName     = "ordmap"
	defaultShutdownTimeout = 5 * time.Second

	// envOTLPHeaders is the standard OTel env var for exporter headers.
	envOTLPHeaders = "OTEL_EXPORTER_OTLP_HEADERS"
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "ci", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio (0.0 to 1.0).
	// Zero keeps the parent-based always-on default.
	SampleRatio float64

	// Prometheus attaches a Prometheus reader and exposes its scrape handler.
	Prometheus bool

	LogLevel slog.Level
	LogJSON  bool

	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer

	// ShutdownTimeout bounds the flush on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeCLI,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// FromSettings derives the observability configuration from loaded settings.
// The log level must already have passed validation.
func FromSettings(settings *config.Config, mode AppMode, version string) Config {
	cfg := DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Mode = mode
	cfg.OTLPEndpoint = settings.Telemetry.OTLPEndpoint
	cfg.OTLPHeaders = ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
	cfg.OTLPInsecure = settings.Telemetry.OTLPInsecure
	cfg.SampleRatio = settings.Telemetry.SampleRatio
	cfg.Prometheus = settings.Telemetry.MetricsAddr != ""
	cfg.LogJSON = settings.Logging.Format == config.FormatJSON

	if level, err := settings.Logging.SlogLevel(); err == nil {
		cfg.LogLevel = level
	}

	if settings.Telemetry.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = settings.Telemetry.ShutdownTimeout
	}

	return cfg
}
