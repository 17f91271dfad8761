package bench

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/Sumatoshi-tech/ordmap/pkg/config"
)

// ErrMismatch is returned when a backend answers a query incorrectly.
var ErrMismatch = errors.New("backend returned a wrong answer")

// Measured operations, in report order.
const (
	OpPut        = "put"
	OpGet        = "get"
	OpLowerBound = "lower_bound"
	OpDelete     = "delete"
)

// Ops lists the measured operations in report order.
func Ops() []string {
	return []string{OpPut, OpGet, OpLowerBound, OpDelete}
}

// Config controls a benchmark run.
type Config struct {
	Backends    []string
	Keys        int
	Rounds      int
	BTreeDegree int
	Seed        int64
}

// ConfigFrom converts the loaded bench settings. The seed is shared with the
// stress workload.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Backends:    cfg.Bench.Backends,
		Keys:        cfg.Bench.Keys,
		Rounds:      cfg.Bench.Rounds,
		BTreeDegree: cfg.Bench.BTreeDegree,
		Seed:        cfg.Workload.Seed,
	}
}

// Result is one timed operation phase.
type Result struct {
	Backend  string        `json:"backend"   yaml:"backend"`
	Op       string        `json:"op"        yaml:"op"`
	Round    int           `json:"round"     yaml:"round"`
	Ops      int           `json:"ops"       yaml:"ops"`
	Duration time.Duration `json:"duration"  yaml:"duration"`
	NsPerOp  float64       `json:"ns_per_op" yaml:"ns_per_op"`
}

// Run times every configured backend over the same shuffled keys. Keys are
// even, lower bound probes are odd, so each probe lands between two keys.
func Run(ctx context.Context, cfg Config) ([]Result, error) {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed))) //nolint:gosec // reproducible workload, not crypto.

	keys := make([]int, cfg.Keys)
	for i, v := range rng.Perm(cfg.Keys) {
		keys[i] = 2 * v
	}

	results := make([]Result, 0, len(cfg.Backends)*cfg.Rounds*len(Ops()))

	for round := range cfg.Rounds {
		for _, name := range cfg.Backends {
			err := ctx.Err()
			if err != nil {
				return results, fmt.Errorf("bench: %w", err)
			}

			backend, err := NewBackend(name, cfg.BTreeDegree)
			if err != nil {
				return results, err
			}

			phases, err := runRound(backend, keys, rng)
			if err != nil {
				return results, fmt.Errorf("bench %s round %d: %w", name, round, err)
			}

			for _, phase := range phases {
				phase.Round = round
				results = append(results, phase)
			}
		}
	}

	return results, nil
}

func runRound(backend Backend, keys []int, rng *rand.Rand) ([]Result, error) {
	order := slices.Clone(keys)
	phases := make([]Result, 0, len(Ops()))

	measure := func(op string, fn func(key int) error) error {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		start := time.Now()

		for _, key := range order {
			err := fn(key)
			if err != nil {
				return fmt.Errorf("%s %d: %w", op, key, err)
			}
		}

		elapsed := time.Since(start)
		phases = append(phases, Result{
			Backend:  backend.Name(),
			Op:       op,
			Ops:      len(order),
			Duration: elapsed,
			NsPerOp:  float64(elapsed.Nanoseconds()) / float64(max(len(order), 1)),
		})

		return nil
	}

	maxKey := 2 * (len(keys) - 1)

	steps := []struct {
		op string
		fn func(key int) error
	}{
		{OpPut, backend.Put},
		{OpGet, func(key int) error {
			value, ok, err := backend.Get(key)

			return expect(ok && value == key, err, "get %d: got %d, %t", key, value, ok)
		}},
		{OpLowerBound, func(key int) error {
			value, ok, err := backend.LowerBound(key + 1)
			if key == maxKey {
				return expect(!ok, err, "lower bound past %d: got %d", key, value)
			}

			return expect(ok && value == key+2, err, "lower bound %d: got %d, %t", key+1, value, ok)
		}},
		{OpDelete, func(key int) error {
			ok, err := backend.Delete(key)

			return expect(ok, err, "delete %d: not found", key)
		}},
	}

	for _, step := range steps {
		err := measure(step.op, step.fn)
		if err != nil {
			return nil, err
		}
	}

	if n := backend.Len(); n != 0 {
		return nil, fmt.Errorf("%w: %d keys left after delete", ErrMismatch, n)
	}

	return phases, nil
}

func expect(ok bool, err error, format string, args ...any) error {
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: "+format, append([]any{ErrMismatch}, args...)...)
	}

	return nil
}
