package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/workload"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
)

type stressOptions struct {
	keys             int
	keySpace         int
	seed             int64
	validateEvery    int
	checkBoundsEvery int
}

func newStressCommand(global *globalOptions, initObs observabilityInit) *cobra.Command {
	opts := &stressOptions{}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Insert and remove random keys while checking invariants",
		Long: `Insert unique random keys in random order, then remove them in a different
order. The tree is validated and its bounds are compared with a B-tree oracle
at the configured intervals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStress(cmd, global, opts, initObs)
		},
	}

	cmd.Flags().IntVar(&opts.keys, "keys", 0, "Number of unique keys (default from config)")
	cmd.Flags().IntVar(&opts.keySpace, "key-space", 0, "Keys are drawn from [0, key-space)")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Random seed")
	cmd.Flags().IntVar(&opts.validateEvery, "validate-every", 0, "Validate the tree every N steps (0 = never)")
	cmd.Flags().IntVar(&opts.checkBoundsEvery, "check-bounds-every", 0, "Compare bounds with the oracle every N steps (0 = never)")

	return cmd
}

func runStress(cmd *cobra.Command, global *globalOptions, opts *stressOptions, initObs observabilityInit) error {
	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("keys") {
		cfg.Workload.Keys = opts.keys
	}

	if flags.Changed("key-space") {
		cfg.Workload.KeySpace = opts.keySpace
	}

	if flags.Changed("seed") {
		cfg.Workload.Seed = opts.seed
	}

	if flags.Changed("validate-every") {
		cfg.Workload.ValidateEvery = opts.validateEvery
	}

	if flags.Changed("check-bounds-every") {
		cfg.Workload.CheckBoundsEvery = opts.checkBoundsEvery
	}

	sess, err := start(cmd, cfg, observability.ModeStress, initObs)
	if err != nil {
		return err
	}
	defer sess.close()

	metrics, err := observability.NewOpMetrics(sess.providers.Meter)
	if err != nil {
		return fmt.Errorf("stress: %w", err)
	}

	result, err := workload.Stress(
		cmd.Context(), workload.StressConfigFrom(cfg.Workload),
		metrics, sess.providers.Logger, sess.providers.Tracer,
	)
	if err != nil {
		return err
	}

	return sess.renderer.Stress(cmd.OutOrStdout(), result)
}
