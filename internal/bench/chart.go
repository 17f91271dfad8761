package bench

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const chartHeight = "500px"

// Summary aggregates the rounds of one backend and operation.
type Summary struct {
	Backend     string  `json:"backend"        yaml:"backend"`
	Op          string  `json:"op"             yaml:"op"`
	Rounds      int     `json:"rounds"         yaml:"rounds"`
	Ops         int     `json:"ops"            yaml:"ops"`
	MeanNsPerOp float64 `json:"mean_ns_per_op" yaml:"mean_ns_per_op"`
	MinNsPerOp  float64 `json:"min_ns_per_op"  yaml:"min_ns_per_op"`
}

// Summarize groups results by backend and operation, keeping backends in
// first-seen order and operations in Ops order.
func Summarize(results []Result) []Summary {
	type groupKey struct{ backend, op string }

	var backends []string

	groups := make(map[groupKey]*Summary)

	for _, r := range results {
		if !slices.Contains(backends, r.Backend) {
			backends = append(backends, r.Backend)
		}

		key := groupKey{r.Backend, r.Op}

		s, ok := groups[key]
		if !ok {
			s = &Summary{Backend: r.Backend, Op: r.Op, MinNsPerOp: r.NsPerOp}
			groups[key] = s
		}

		s.MeanNsPerOp = (s.MeanNsPerOp*float64(s.Rounds) + r.NsPerOp) / float64(s.Rounds+1)
		s.MinNsPerOp = min(s.MinNsPerOp, r.NsPerOp)
		s.Ops += r.Ops
		s.Rounds++
	}

	summaries := make([]Summary, 0, len(groups))

	for _, backend := range backends {
		for _, op := range Ops() {
			if s, ok := groups[groupKey{backend, op}]; ok {
				summaries = append(summaries, *s)
			}
		}
	}

	return summaries
}

// WriteChart renders a grouped bar chart of mean ns/op, one series per backend.
func WriteChart(w io.Writer, results []Result) error {
	summaries := Summarize(results)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "ordmap benchmark", Subtitle: "mean ns/op, lower is better"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ns/op", Type: "value"}),
	)
	bar.SetXAxis(Ops())

	var backends []string

	byBackend := make(map[string][]opts.BarData)

	for _, s := range summaries {
		if _, seen := byBackend[s.Backend]; !seen {
			backends = append(backends, s.Backend)
			byBackend[s.Backend] = make([]opts.BarData, len(Ops()))
		}

		byBackend[s.Backend][slices.Index(Ops(), s.Op)] = opts.BarData{Value: s.MeanNsPerOp}
	}

	for _, backend := range backends {
		bar.AddSeries(backend, byBackend[backend])
	}

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
