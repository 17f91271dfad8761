package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/ordmap/pkg/sortedmap"
)

const (
	metricOpsTotal    = "ordmap.ops.total"
	metricOpDuration  = "ordmap.op.duration.seconds"
	metricErrorsTotal = "ordmap.errors.total"
	metricEntries     = "ordmap.entries"

	attrOp     = "op"
	attrStatus = "status"
	attrReason = "reason"

	statusOK    = "ok"
	statusMiss  = "miss"
	statusError = "error"
)

// durationBucketBoundaries covers 100ns to 10ms, the range of a single map operation.
var durationBucketBoundaries = []float64{1e-7, 5e-7, 1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 1e-3, 1e-2}

// OpMetrics holds the OTel instruments recorded around map operations.
type OpMetrics struct {
	opsTotal    metric.Int64Counter
	opDuration  metric.Float64Histogram
	errorsTotal metric.Int64Counter
	entries     metric.Int64UpDownCounter
}

// NewOpMetrics creates the operation instruments from the given meter.
func NewOpMetrics(mt metric.Meter) (*OpMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Total number of map operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Map operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed map operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	entries, err := mt.Int64UpDownCounter(metricEntries,
		metric.WithDescription("Number of entries held by the map under test"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEntries, err)
	}

	return &OpMetrics{
		opsTotal:    opsTotal,
		opDuration:  opDuration,
		errorsTotal: errorsTotal,
		entries:     entries,
	}, nil
}

// RecordOp records a completed operation. A missing key counts as a miss,
// not an error.
func (om *OpMetrics) RecordOp(ctx context.Context, op string, err error, duration time.Duration) {
	status := classify(err)
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	om.opsTotal.Add(ctx, 1, attrs)
	om.opDuration.Record(ctx, duration.Seconds(), attrs)

	if status == statusError {
		om.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, op),
			attribute.String(attrReason, reason(err)),
		))
	}
}

// Time runs fn and records it as op.
func (om *OpMetrics) Time(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	om.RecordOp(ctx, op, err, time.Since(start))

	return err
}

// AddEntries moves the entries gauge by delta.
func (om *OpMetrics) AddEntries(ctx context.Context, delta int64) {
	if delta != 0 {
		om.entries.Add(ctx, delta)
	}
}

func classify(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, sortedmap.ErrKeyNotFound):
		return statusMiss
	default:
		return statusError
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, sortedmap.ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, sortedmap.ErrInvalidKey):
		return "invalid_key"
	default:
		return "other"
	}
}
