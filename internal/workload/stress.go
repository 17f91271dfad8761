// Package workload drives the ordered map through randomized and scripted
// operation sequences while checking its invariants.
package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/btree"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/ordmap/pkg/config"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
	"github.com/Sumatoshi-tech/ordmap/pkg/sortedmap"
)

// ErrInvariantViolated is returned when the map disagrees with the oracle or
// fails structural validation.
var ErrInvariantViolated = errors.New("invariant violated")

const (
	oracleDegree = 16

	phaseInsert = "insert"
	phaseRemove = "remove"

	// permThreshold is the key-space to key-count ratio below which keys are
	// drawn from a permutation instead of by rejection.
	permThreshold = 4
)

// StressConfig controls a stress run.
type StressConfig struct {
	Keys             int
	KeySpace         int
	Seed             int64
	ValidateEvery    int
	CheckBoundsEvery int
}

// StressConfigFrom converts the loaded workload settings.
func StressConfigFrom(cfg config.WorkloadConfig) StressConfig {
	return StressConfig{
		Keys:             cfg.Keys,
		KeySpace:         cfg.KeySpace,
		Seed:             cfg.Seed,
		ValidateEvery:    cfg.ValidateEvery,
		CheckBoundsEvery: cfg.CheckBoundsEvery,
	}
}

// StressResult summarizes a completed stress run.
type StressResult struct {
	Keys           int           `json:"keys"            yaml:"keys"`
	Seed           int64         `json:"seed"            yaml:"seed"`
	Inserted       int           `json:"inserted"        yaml:"inserted"`
	Removed        int           `json:"removed"         yaml:"removed"`
	Validations    int           `json:"validations"     yaml:"validations"`
	BoundChecks    int           `json:"bound_checks"    yaml:"bound_checks"`
	MaxHeight      int           `json:"max_height"      yaml:"max_height"`
	InsertDuration time.Duration `json:"insert_duration" yaml:"insert_duration"`
	RemoveDuration time.Duration `json:"remove_duration" yaml:"remove_duration"`
}

type stressRun struct {
	cfg     StressConfig
	m       *sortedmap.Map[int, int]
	oracle  *btree.BTreeG[int]
	rng     *rand.Rand
	metrics *observability.OpMetrics
	logger  *slog.Logger
	result  *StressResult
}

// Stress inserts cfg.Keys unique keys in random order and removes them again
// in a different order. After every ValidateEvery steps the map is validated,
// and after every CheckBoundsEvery steps a random probe is checked against a
// B-tree oracle. Metrics, logger and tracer may be nil.
func Stress(
	ctx context.Context, cfg StressConfig, metrics *observability.OpMetrics,
	logger *slog.Logger, tracer trace.Tracer,
) (*StressResult, error) {
	if cfg.Keys <= 0 || cfg.KeySpace < cfg.Keys {
		return nil, fmt.Errorf("stress: %w: keys=%d key_space=%d", config.ErrInvalidKeySpace, cfg.Keys, cfg.KeySpace)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("")
	}

	run := &stressRun{
		cfg:     cfg,
		m:       sortedmap.New[int, int](),
		oracle:  btree.NewOrderedG[int](oracleDegree),
		rng:     rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed))), //nolint:gosec // reproducible workload, not crypto.
		metrics: metrics,
		logger:  logger,
		result:  &StressResult{Keys: cfg.Keys, Seed: cfg.Seed},
	}

	ctx, span := tracer.Start(ctx, "workload.stress", trace.WithAttributes(
		attribute.Int("workload.keys", cfg.Keys),
		attribute.Int64("workload.seed", cfg.Seed),
	))
	defer span.End()

	keys := run.drawKeys()

	logger.InfoContext(ctx, "stress started", "keys", cfg.Keys, "key_space", cfg.KeySpace, "seed", cfg.Seed)

	err := run.phase(ctx, tracer, phaseInsert, keys, run.insert)
	if err != nil {
		span.RecordError(err)

		return run.result, err
	}

	err = run.checkOrder()
	if err != nil {
		span.RecordError(err)

		return run.result, err
	}

	run.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	err = run.phase(ctx, tracer, phaseRemove, keys, run.remove)
	if err != nil {
		span.RecordError(err)

		return run.result, err
	}

	err = run.checkDrained()
	if err != nil {
		span.RecordError(err)

		return run.result, err
	}

	logger.InfoContext(ctx, "stress finished",
		"validations", run.result.Validations,
		"bound_checks", run.result.BoundChecks,
		"max_height", run.result.MaxHeight,
	)

	return run.result, nil
}

// drawKeys returns cfg.Keys distinct keys from [0, KeySpace) in random order.
func (r *stressRun) drawKeys() []int {
	if r.cfg.KeySpace <= permThreshold*r.cfg.Keys {
		return r.rng.Perm(r.cfg.KeySpace)[:r.cfg.Keys]
	}

	seen := make(map[int]struct{}, r.cfg.Keys)
	keys := make([]int, 0, r.cfg.Keys)

	for len(keys) < r.cfg.Keys {
		key := r.rng.IntN(r.cfg.KeySpace)
		if _, dup := seen[key]; dup {
			continue
		}

		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	return keys
}

func (r *stressRun) phase(
	ctx context.Context, tracer trace.Tracer, name string, keys []int,
	apply func(ctx context.Context, key int) error,
) error {
	ctx, span := tracer.Start(observability.ContextWithPhase(ctx, name), "workload."+name)
	defer span.End()

	start := time.Now()

	for step, key := range keys {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("stress %s: %w", name, err)
		}

		err = apply(ctx, key)
		if err != nil {
			return fmt.Errorf("%s step %d key %d: %w", name, step, key, err)
		}

		err = r.check(ctx, name, step)
		if err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	if name == phaseInsert {
		r.result.InsertDuration = elapsed
	} else {
		r.result.RemoveDuration = elapsed
	}

	r.logger.DebugContext(ctx, "phase done", "duration", elapsed)

	return nil
}

func (r *stressRun) insert(ctx context.Context, key int) error {
	err := r.timed(ctx, "add", func() error { return r.m.Add(key, key) })
	if err != nil {
		return err
	}

	r.oracle.ReplaceOrInsert(key)
	r.result.Inserted++

	if r.metrics != nil {
		r.metrics.AddEntries(ctx, 1)
	}

	return nil
}

func (r *stressRun) remove(ctx context.Context, key int) error {
	var removed bool

	err := r.timed(ctx, "remove", func() error {
		var err error

		removed, err = r.m.Remove(key)

		return err
	})
	if err != nil {
		return err
	}

	if !removed {
		return fmt.Errorf("%w: key %d reported absent", ErrInvariantViolated, key)
	}

	r.oracle.Delete(key)
	r.result.Removed++

	if r.metrics != nil {
		r.metrics.AddEntries(ctx, -1)
	}

	return nil
}

func (r *stressRun) timed(ctx context.Context, op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.Time(ctx, op, fn)
}

func (r *stressRun) check(ctx context.Context, phase string, step int) error {
	if r.m.Len() != r.oracle.Len() {
		return fmt.Errorf("%w: %s step %d: len %d, oracle %d",
			ErrInvariantViolated, phase, step, r.m.Len(), r.oracle.Len())
	}

	if every(r.cfg.ValidateEvery, step) {
		err := r.timed(ctx, "validate", r.m.Validate)
		if err != nil {
			return fmt.Errorf("%w: %s step %d: %w", ErrInvariantViolated, phase, step, err)
		}

		r.result.Validations++
		r.result.MaxHeight = max(r.result.MaxHeight, r.m.Stats().Height)
	}

	if every(r.cfg.CheckBoundsEvery, step) {
		err := r.checkBounds(ctx, r.rng.IntN(r.cfg.KeySpace+1))
		if err != nil {
			return fmt.Errorf("%s step %d: %w", phase, step, err)
		}

		r.result.BoundChecks++
	}

	return nil
}

func every(interval, step int) bool {
	return interval > 0 && (step+1)%interval == 0
}

// checkBounds compares LowerBound and UpperBound of probe with the oracle.
func (r *stressRun) checkBounds(ctx context.Context, probe int) error {
	var got int

	err := r.timed(ctx, "lower_bound", func() error {
		var err error

		got, err = r.m.LowerBound(probe)

		return err
	})

	want, found := r.oracleCeiling(probe)

	err = compareBound("lower bound", probe, got, err, want, found)
	if err != nil {
		return err
	}

	err = r.timed(ctx, "upper_bound", func() error {
		var err error

		got, err = r.m.UpperBound(probe)

		return err
	})

	want, found = r.oracleCeiling(probe + 1)

	return compareBound("upper bound", probe, got, err, want, found)
}

func (r *stressRun) oracleCeiling(pivot int) (int, bool) {
	var (
		ceiling int
		found   bool
	)

	r.oracle.AscendGreaterOrEqual(pivot, func(item int) bool {
		ceiling, found = item, true

		return false
	})

	return ceiling, found
}

func compareBound(op string, probe, got int, err error, want int, found bool) error {
	switch {
	case !found && errors.Is(err, sortedmap.ErrKeyNotFound):
		return nil
	case !found:
		return fmt.Errorf("%w: %s of %d: got %d (err %v), oracle has none", ErrInvariantViolated, op, probe, got, err)
	case err != nil:
		return fmt.Errorf("%w: %s of %d: oracle %d: %w", ErrInvariantViolated, op, probe, want, err)
	case got != want:
		return fmt.Errorf("%w: %s of %d: got %d, oracle %d", ErrInvariantViolated, op, probe, got, want)
	default:
		return nil
	}
}

// checkOrder verifies that Keys is strictly increasing and matches the oracle.
func (r *stressRun) checkOrder() error {
	keys := slices.Collect(r.m.Keys())

	want := make([]int, 0, r.oracle.Len())
	r.oracle.Ascend(func(item int) bool {
		want = append(want, item)

		return true
	})

	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			return fmt.Errorf("%w: keys out of order at %d: %d >= %d", ErrInvariantViolated, i, keys[i-1], keys[i])
		}
	}

	if !slices.Equal(keys, want) {
		return fmt.Errorf("%w: key set differs from oracle", ErrInvariantViolated)
	}

	return nil
}

func (r *stressRun) checkDrained() error {
	if r.m.Len() != 0 {
		return fmt.Errorf("%w: %d entries left after removal", ErrInvariantViolated, r.m.Len())
	}

	err := r.m.Validate()
	if err != nil {
		return fmt.Errorf("%w: empty map: %w", ErrInvariantViolated, err)
	}

	removed, err := r.m.Remove(0)
	if err != nil || removed {
		return fmt.Errorf("%w: remove on empty map returned (%v, %v)", ErrInvariantViolated, removed, err)
	}

	return nil
}
