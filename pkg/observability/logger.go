package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrSampled = "sampled"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrPhase   = "phase"
)

type phaseKey struct{}

// ContextWithPhase scopes ctx to a workload phase such as "insert" or
// "remove". Records logged with the returned context carry a phase attribute.
func ContextWithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFromContext returns the phase set by [ContextWithPhase].
func PhaseFromContext(ctx context.Context) (string, bool) {
	phase, ok := ctx.Value(phaseKey{}).(string)

	return phase, ok && phase != ""
}

// LogValue renders the mode as its command name.
func (m AppMode) LogValue() slog.Value {
	if m == "" {
		return slog.StringValue(string(ModeCLI))
	}

	return slog.StringValue(string(m))
}

// TracingHandler is an [slog.Handler] that tags records with the active span
// and the workload phase found in the context. Service and mode are bound at
// construction so groups opened later do not nest them.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner. An empty env is omitted.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String(attrService, service), slog.Any(attrMode, appMode))

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
			slog.Bool(attrSampled, sc.IsSampled()),
		)
	}

	if phase, ok := PhaseFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrPhase, phase))
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
