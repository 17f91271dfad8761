// Package report renders workload and benchmark results for the terminal or
// for machines.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/ordmap/internal/bench"
	"github.com/Sumatoshi-tech/ordmap/internal/workload"
	"github.com/Sumatoshi-tech/ordmap/pkg/config"
)

// ErrUnknownFormat is returned for an output format other than table, json or yaml.
var ErrUnknownFormat = errors.New("unknown output format")

const (
	yamlIndent     = 2
	nsPerOpDigits  = 1
	durationPrecision = time.Microsecond
)

// Renderer writes results in one output format.
type Renderer struct {
	Format string
	Color  bool
}

// benchDocument is the machine-readable bench report.
type benchDocument struct {
	Summary []bench.Summary `json:"summary" yaml:"summary"`
	Results []bench.Result  `json:"results" yaml:"results"`
}

// Stress renders a stress run summary.
func (r Renderer) Stress(w io.Writer, res *workload.StressResult) error {
	if r.Format != config.FormatTable {
		return r.encode(w, res)
	}

	tbl := r.newTable(w)
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"keys", humanize.Comma(int64(res.Keys))},
		{"seed", res.Seed},
		{"inserted", humanize.Comma(int64(res.Inserted))},
		{"removed", humanize.Comma(int64(res.Removed))},
		{"validations", humanize.Comma(int64(res.Validations))},
		{"bound checks", humanize.Comma(int64(res.BoundChecks))},
		{"max height", res.MaxHeight},
		{"insert time", res.InsertDuration.Round(durationPrecision)},
		{"remove time", res.RemoveDuration.Round(durationPrecision)},
	})
	tbl.AppendFooter(table.Row{"status", r.paint(color.FgGreen, "ok")})
	tbl.Render()

	return nil
}

// Bench renders per-backend, per-operation summaries. Machine formats also
// include every round.
func (r Renderer) Bench(w io.Writer, results []bench.Result) error {
	summaries := bench.Summarize(results)

	if r.Format != config.FormatTable {
		return r.encode(w, benchDocument{Summary: summaries, Results: results})
	}

	fastest := make(map[string]float64)
	for _, s := range summaries {
		if best, ok := fastest[s.Op]; !ok || s.MeanNsPerOp < best {
			fastest[s.Op] = s.MeanNsPerOp
		}
	}

	tbl := r.newTable(w)
	tbl.AppendHeader(table.Row{"Backend", "Op", "Rounds", "Ops", "Mean ns/op", "Min ns/op"})

	for _, s := range summaries {
		mean := humanize.CommafWithDigits(s.MeanNsPerOp, nsPerOpDigits)
		if s.MeanNsPerOp == fastest[s.Op] {
			mean = r.paint(color.FgGreen, mean)
		}

		tbl.AppendRow(table.Row{
			s.Backend, s.Op, s.Rounds, humanize.Comma(int64(s.Ops)),
			mean, humanize.CommafWithDigits(s.MinNsPerOp, nsPerOpDigits),
		})
	}

	tbl.Render()

	return nil
}

// Replay renders each step with its outcome.
func (r Renderer) Replay(w io.Writer, res *workload.ReplayResult) error {
	if r.Format != config.FormatTable {
		return r.encode(w, res)
	}

	tbl := r.newTable(w)
	if res.Name != "" {
		tbl.SetTitle(res.Name)
	}

	tbl.AppendHeader(table.Row{"#", "Op", "Key", "Result", "Status"})

	for _, step := range res.Steps {
		status := r.paint(color.FgGreen, "pass")
		if !step.OK {
			status = r.paint(color.FgRed, "FAIL: "+step.Message)
		}

		tbl.AppendRow(table.Row{step.Index, step.Op, step.Key, step.Result, status})
	}

	failed := res.Failed()
	summary := fmt.Sprintf("%d/%d passed, final len %s",
		len(res.Steps)-failed, len(res.Steps), humanize.Comma(int64(res.FinalLen)))

	if failed > 0 {
		summary = r.paint(color.FgRed, summary)
	}

	tbl.AppendFooter(table.Row{"", "", "", "", summary})
	tbl.Render()

	return nil
}

func (r Renderer) newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.Style().Title.Format = text.FormatDefault

	return tbl
}

func (r Renderer) encode(w io.Writer, v any) error {
	switch r.Format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(v)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		return nil
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		err := enc.Encode(v)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		err = enc.Close()
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, strconv.Quote(r.Format))
	}
}

func (r Renderer) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if r.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c.Sprint(s)
}
