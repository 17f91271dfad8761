package workload

import (
	"cmp"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/ordmap/pkg/sortedmap"
)

// Replay errors.
var (
	ErrInvalidScript = errors.New("invalid replay script")
	ErrReplayFailed  = errors.New("replay expectations not met")
)

// Replay operations.
const (
	OpAdd             = "add"
	OpSet             = "set"
	OpGet             = "get"
	OpRemove          = "remove"
	OpContains        = "contains"
	OpLowerBound      = "lower_bound"
	OpUpperBound      = "upper_bound"
	OpLowerBoundItems = "lower_bound_items"
	OpUpperBoundItems = "upper_bound_items"
	OpClear           = "clear"
	OpValidate        = "validate"
	OpLen             = "len"
)

// Error kinds accepted by expect_error.
const (
	ErrorNone        = "none"
	ErrorKeyNotFound = "key_not_found"
	ErrorDuplicate   = "duplicate_key"
	ErrorInvalidKey  = "invalid_key"
	errorOther       = "other"
)

//go:embed replay.schema.json
var replaySchema string

// Script is a named sequence of map operations.
type Script struct {
	Name  string `json:"name"`
	Steps []Step `json:"steps"`
}

// Step is one operation with optional expectations. A null key is passed to
// the map as a nil key.
type Step struct {
	Op          string                            `json:"op"`
	Key         *string                           `json:"key"`
	Value       string                            `json:"value"`
	Expect      *string                           `json:"expect"`
	ExpectFound *bool                             `json:"expect_found"`
	ExpectError *string                           `json:"expect_error"`
	ExpectItems []sortedmap.Entry[string, string] `json:"expect_items"`
	ExpectLen   *int                              `json:"expect_len"`
}

// StepOutcome records what a step observed and whether its expectations held.
type StepOutcome struct {
	Index   int    `json:"index"             yaml:"index"`
	Op      string `json:"op"                yaml:"op"`
	Key     string `json:"key,omitempty"     yaml:"key,omitempty"`
	Result  string `json:"result"            yaml:"result"`
	OK      bool   `json:"ok"                yaml:"ok"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// ReplayResult is the outcome of a whole script.
type ReplayResult struct {
	Name     string        `json:"name"      yaml:"name"`
	Steps    []StepOutcome `json:"steps"     yaml:"steps"`
	FinalLen int           `json:"final_len" yaml:"final_len"`
}

// Failed counts the steps whose expectations were not met.
func (r *ReplayResult) Failed() int {
	failed := 0

	for _, step := range r.Steps {
		if !step.OK {
			failed++
		}
	}

	return failed
}

// Err returns ErrReplayFailed when any step failed.
func (r *ReplayResult) Err() error {
	if failed := r.Failed(); failed > 0 {
		return fmt.Errorf("%w: %d of %d steps", ErrReplayFailed, failed, len(r.Steps))
	}

	return nil
}

// LoadScript reads a script and validates it against the embedded schema.
func LoadScript(r io.Reader) (*Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(replaySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidScript, strings.Join(msgs, "; "))
	}

	var script Script

	err = json.Unmarshal(data, &script)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	return &script, nil
}

// Replay loads a script and runs it against an empty string map.
// Unmet expectations are reported in the result, not as an error.
func Replay(ctx context.Context, r io.Reader) (*ReplayResult, error) {
	script, err := LoadScript(r)
	if err != nil {
		return nil, err
	}

	return Run(ctx, script)
}

// Run executes an already loaded script.
func Run(ctx context.Context, script *Script) (*ReplayResult, error) {
	// Keys are any so that a JSON null reaches the map as a nil key.
	// The schema only admits strings and null, and nil never reaches compare.
	m := sortedmap.NewFunc[any, string](func(a, b any) int {
		return cmp.Compare(a.(string), b.(string)) //nolint:forcetypeassert // schema admits strings only.
	})

	result := &ReplayResult{Name: script.Name, Steps: make([]StepOutcome, 0, len(script.Steps))}

	for i, step := range script.Steps {
		err := ctx.Err()
		if err != nil {
			return result, fmt.Errorf("replay step %d: %w", i, err)
		}

		obs := execute(m, step)
		outcome := StepOutcome{Index: i, Op: step.Op, Result: obs.String()}

		if step.Key != nil {
			outcome.Key = *step.Key
		}

		outcome.Message = obs.verify(step, m.Len())
		outcome.OK = outcome.Message == ""
		result.Steps = append(result.Steps, outcome)
	}

	result.FinalLen = m.Len()

	return result, nil
}

// observation is what a single step saw.
type observation struct {
	value   *string
	found   *bool
	errKind string
	err     error
	items   []sortedmap.Entry[string, string]
}

func execute(m *sortedmap.Map[any, string], step Step) observation {
	var key any
	if step.Key != nil {
		key = *step.Key
	}

	var obs observation

	switch step.Op {
	case OpAdd:
		obs.setErr(m.Add(key, step.Value))
	case OpSet:
		obs.setErr(m.Set(key, step.Value))
	case OpGet:
		obs.setValue(m.Get(key))
	case OpLowerBound:
		obs.setValue(m.LowerBound(key))
	case OpUpperBound:
		obs.setValue(m.UpperBound(key))
	case OpRemove:
		removed, err := m.Remove(key)
		obs.found = &removed
		obs.setErr(err)
	case OpContains:
		found := m.ContainsKey(key)
		obs.found = &found
	case OpLowerBoundItems:
		obs.items = entries(m.LowerBoundItems(key))
	case OpUpperBoundItems:
		obs.items = entries(m.UpperBoundItems(key))
	case OpClear:
		m.Clear()
	case OpValidate:
		obs.setErr(m.Validate())
	case OpLen:
	}

	return obs
}

func entries(seq iter.Seq2[any, string]) []sortedmap.Entry[string, string] {
	items := []sortedmap.Entry[string, string]{}

	for key, value := range seq {
		items = append(items, sortedmap.Entry[string, string]{Key: key.(string), Value: value}) //nolint:forcetypeassert // see Run.
	}

	return items
}

func (o *observation) setErr(err error) {
	o.err = err
	o.errKind = errorKind(err)
}

func (o *observation) setValue(value string, err error) {
	o.setErr(err)

	found := err == nil
	o.found = &found

	if found {
		o.value = &value
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ErrorNone
	case errors.Is(err, sortedmap.ErrKeyNotFound):
		return ErrorKeyNotFound
	case errors.Is(err, sortedmap.ErrDuplicateKey):
		return ErrorDuplicate
	case errors.Is(err, sortedmap.ErrInvalidKey):
		return ErrorInvalidKey
	default:
		return errorOther
	}
}

// String renders the observation for reports.
func (o *observation) String() string {
	switch {
	case o.err != nil:
		return "error: " + o.errKind
	case o.value != nil:
		return *o.value
	case o.items != nil:
		parts := make([]string, len(o.items))
		for i, item := range o.items {
			parts[i] = item.Key + "=" + item.Value
		}

		return "[" + strings.Join(parts, " ") + "]"
	case o.found != nil:
		return fmt.Sprintf("found=%t", *o.found)
	default:
		return "ok"
	}
}

// verify returns an empty string when every expectation holds. A step
// without expect_error must not fail, unless it expects the key to be absent.
func (o *observation) verify(step Step, length int) string {
	var problems []string

	switch {
	case step.ExpectError != nil:
		if kind := cmp.Or(o.errKind, ErrorNone); kind != *step.ExpectError {
			problems = append(problems, fmt.Sprintf("error %s, want %s", kind, *step.ExpectError))
		}
	case o.err != nil && !o.expectedMiss(step):
		problems = append(problems, fmt.Sprintf("unexpected error: %v", o.err))
	}

	if step.Expect != nil {
		switch {
		case o.value == nil:
			problems = append(problems, fmt.Sprintf("no value, want %q", *step.Expect))
		case *o.value != *step.Expect:
			problems = append(problems, fmt.Sprintf("value %q, want %q", *o.value, *step.Expect))
		}
	}

	if step.ExpectFound != nil && (o.found == nil || *o.found != *step.ExpectFound) {
		problems = append(problems, fmt.Sprintf("found %s, want %t", o.foundString(), *step.ExpectFound))
	}

	if step.ExpectItems != nil && !slices.Equal(o.items, step.ExpectItems) {
		problems = append(problems, fmt.Sprintf("items %v, want %v", o.items, step.ExpectItems))
	}

	if step.ExpectLen != nil && length != *step.ExpectLen {
		problems = append(problems, fmt.Sprintf("len %d, want %d", length, *step.ExpectLen))
	}

	return strings.Join(problems, "; ")
}

func (o *observation) expectedMiss(step Step) bool {
	return o.errKind == ErrorKeyNotFound && step.ExpectFound != nil && !*step.ExpectFound
}

func (o *observation) foundString() string {
	if o.found == nil {
		return "n/a"
	}

	return fmt.Sprintf("%t", *o.found)
}
