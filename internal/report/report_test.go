package report_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/ordmap/internal/bench"
	"github.com/Sumatoshi-tech/ordmap/internal/report"
	"github.com/Sumatoshi-tech/ordmap/internal/workload"
	"github.com/Sumatoshi-tech/ordmap/pkg/config"
)

func stressResult() *workload.StressResult {
	return &workload.StressResult{
		Keys: 12000, Seed: 9, Inserted: 12000, Removed: 12000,
		Validations: 24000, BoundChecks: 1500, MaxHeight: 17,
		InsertDuration: 1500 * time.Microsecond, RemoveDuration: time.Millisecond,
	}
}

func replayResult() *workload.ReplayResult {
	return &workload.ReplayResult{
		Name: "smoke",
		Steps: []workload.StepOutcome{
			{Index: 0, Op: "add", Key: "a", Result: "ok", OK: true},
			{Index: 1, Op: "get", Key: "a", Result: "1", OK: false, Message: `value "1", want "2"`},
		},
		FinalLen: 1,
	}
}

func benchResults() []bench.Result {
	return []bench.Result{
		{Backend: "ordmap", Op: bench.OpGet, Ops: 1000, NsPerOp: 80},
		{Backend: "btree", Op: bench.OpGet, Ops: 1000, NsPerOp: 1234.5},
	}
}

func TestStressTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Renderer{Format: config.FormatTable}.Stress(&buf, stressResult()))

	out := buf.String()
	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "24,000")
	assert.Contains(t, out, "max height")
	assert.Contains(t, out, "1.5ms")
	assert.NotContains(t, out, "\x1b[")
}

func TestStressJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Renderer{Format: config.FormatJSON}.Stress(&buf, stressResult()))

	var decoded workload.StressResult

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, *stressResult(), decoded)
}

func TestBenchTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Renderer{Format: config.FormatTable, Color: true}.Bench(&buf, benchResults()))

	out := buf.String()
	assert.Contains(t, out, "1,234.5")
	assert.Contains(t, out, "1,000")
	// Only the fastest mean is highlighted.
	assert.Contains(t, out, "\x1b[32m80\x1b[0m")
	assert.NotContains(t, out, "\x1b[32m1,234.5")
}

func TestBenchYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Renderer{Format: config.FormatYAML}.Bench(&buf, benchResults()))

	var decoded struct {
		Summary []bench.Summary `yaml:"summary"`
		Results []bench.Result  `yaml:"results"`
	}

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Summary, 2)
	assert.Len(t, decoded.Results, 2)
	assert.Equal(t, "ordmap", decoded.Summary[0].Backend)
}

func TestReplayTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Renderer{Format: config.FormatTable}.Replay(&buf, replayResult()))

	out := buf.String()
	assert.Contains(t, out, "smoke")
	assert.Contains(t, out, "pass")
	assert.Contains(t, out, `FAIL: value "1", want "2"`)
	assert.Contains(t, out, "1/2 passed, final len 1")
}

func TestReplayJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.Renderer{Format: config.FormatJSON}.Replay(&buf, replayResult()))

	var decoded workload.ReplayResult

	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Failed())
	assert.Equal(t, "smoke", decoded.Name)
}

func TestUnknownFormat(t *testing.T) {
	t.Parallel()

	r := report.Renderer{Format: "csv"}

	require.ErrorIs(t, r.Stress(&bytes.Buffer{}, stressResult()), report.ErrUnknownFormat)
	require.ErrorIs(t, r.Bench(&bytes.Buffer{}, benchResults()), report.ErrUnknownFormat)
	require.ErrorIs(t, r.Replay(&bytes.Buffer{}, replayResult()), report.ErrUnknownFormat)
}
