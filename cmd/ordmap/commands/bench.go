package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/bench"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
)

type benchOptions struct {
	backends []string
	keys     int
	rounds   int
	chart    string
}

func newBenchCommand(global *globalOptions, initObs observabilityInit) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the map against other ordered containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, global, opts, initObs)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.backends, "backends", "b", nil, "Backends to compare: ordmap, btree, llrb")
	cmd.Flags().IntVar(&opts.keys, "keys", 0, "Keys per round (default from config)")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 0, "Number of rounds (default from config)")
	cmd.Flags().StringVar(&opts.chart, "chart", "", "Write an HTML bar chart to this file")

	return cmd
}

func runBench(cmd *cobra.Command, global *globalOptions, opts *benchOptions, initObs observabilityInit) error {
	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("backends") {
		cfg.Bench.Backends = opts.backends
	}

	if flags.Changed("keys") {
		cfg.Bench.Keys = opts.keys
	}

	if flags.Changed("rounds") {
		cfg.Bench.Rounds = opts.rounds
	}

	sess, err := start(cmd, cfg, observability.ModeBench, initObs)
	if err != nil {
		return err
	}
	defer sess.close()

	ctx, span := sess.providers.Tracer.Start(cmd.Context(), "bench.run")
	defer span.End()

	sess.providers.Logger.InfoContext(ctx, "bench started",
		"backends", cfg.Bench.Backends, "keys", cfg.Bench.Keys, "rounds", cfg.Bench.Rounds)

	results, err := bench.Run(ctx, bench.ConfigFrom(cfg))
	if err != nil {
		span.RecordError(err)

		return err
	}

	if opts.chart != "" {
		err = writeChart(opts.chart, results)
		if err != nil {
			return err
		}

		sess.providers.Logger.InfoContext(ctx, "chart written", "path", opts.chart)
	}

	return sess.renderer.Bench(cmd.OutOrStdout(), results)
}

func writeChart(path string, results []bench.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}

	err = bench.WriteChart(f, results)

	closeErr := f.Close()
	if err == nil && closeErr != nil {
		return fmt.Errorf("close chart: %w", closeErr)
	}

	return err
}
