package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/workload"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
)

const stdinPath = "-"

func newReplayCommand(global *globalOptions, initObs observabilityInit) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <script.json|->",
		Short: "Run a JSON operation script against a string map",
		Long: `Run a JSON operation script against an empty string map and check each
step's expectations. Use "-" to read the script from stdin. The command fails
when any expectation is not met.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, global, args[0], initObs)
		},
	}
}

func runReplay(cmd *cobra.Command, global *globalOptions, path string, initObs observabilityInit) error {
	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}

	sess, err := start(cmd, cfg, observability.ModeReplay, initObs)
	if err != nil {
		return err
	}
	defer sess.close()

	input, closeInput, err := openScript(cmd, path)
	if err != nil {
		return err
	}
	defer closeInput()

	ctx, span := sess.providers.Tracer.Start(cmd.Context(), "replay.run")
	defer span.End()

	result, err := workload.Replay(ctx, input)
	if err != nil {
		span.RecordError(err)

		return err
	}

	sess.providers.Logger.InfoContext(ctx, "replay finished",
		"script", result.Name, "steps", len(result.Steps), "failed", result.Failed())

	err = sess.renderer.Replay(cmd.OutOrStdout(), result)
	if err != nil {
		return err
	}

	return result.Err()
}

func openScript(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == stdinPath {
		return cmd.InOrStdin(), func() {}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open script: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}
