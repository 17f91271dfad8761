// Package commands implements CLI command handlers for ordmap.
package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/ordmap/internal/report"
	"github.com/Sumatoshi-tech/ordmap/pkg/config"
	"github.com/Sumatoshi-tech/ordmap/pkg/observability"
	"github.com/Sumatoshi-tech/ordmap/pkg/version"
)

const (
	metricsPath       = "/metrics"
	readHeaderTimeout = 5 * time.Second
)

type observabilityInit func(observability.Config) (observability.Providers, error)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	format      string
	noColor     bool
	logLevel    string
	logJSON     bool
	metricsAddr string
}

// session is the per-invocation state built from config, flags and telemetry.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	renderer  report.Renderer
	metrics   *http.Server
}

// NewRootCommand builds the ordmap command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(observability.Init)
}

func newRootCommandWithDeps(initObs observabilityInit) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ordmap",
		Short: "Ordered map diagnostics",
		Long: `ordmap exercises a red-black tree backed ordered map.

Commands:
  stress    Randomized insert/remove workload with invariant checks
  bench     Compare the map against other ordered containers
  replay    Run a JSON operation script and check its expectations`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default: ./ordmap.yaml, ./config, /etc/ordmap)")
	flags.StringVar(&opts.format, "format", config.DefaultOutputFormat, "Output format: table, json, yaml")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "Emit JSON logs")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")

	rootCmd.AddCommand(
		newStressCommand(opts, initObs),
		newBenchCommand(opts, initObs),
		newReplayCommand(opts, initObs),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// loadConfig reads the config file and applies the persistent flags the
// user set explicitly.
func (opts *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}

	if opts.noColor {
		cfg.Output.Color = false
	}

	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	if opts.logJSON {
		cfg.Logging.Format = config.FormatJSON
	}

	if flags.Changed("metrics-addr") {
		cfg.Telemetry.MetricsAddr = opts.metricsAddr
	}

	return cfg, nil
}

// start validates the final configuration, initializes telemetry and, when
// requested, starts the metrics listener.
func start(
	cmd *cobra.Command, cfg *config.Config, mode observability.AppMode, initObs observabilityInit,
) (*session, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	obsCfg := observability.FromSettings(cfg, mode, version.Version)
	obsCfg.LogOutput = cmd.ErrOrStderr()

	providers, err := initObs(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	sess := &session{
		cfg:       cfg,
		providers: providers,
		renderer:  report.Renderer{Format: cfg.Output.Format, Color: cfg.Output.Color},
	}

	if providers.MetricsHandler != nil && cfg.Telemetry.MetricsAddr != "" {
		err = sess.serveMetrics(cmd.Context(), cfg.Telemetry.MetricsAddr)
		if err != nil {
			return nil, errors.Join(err, providers.Shutdown(context.Background()))
		}
	}

	return sess, nil
}

func (s *session) serveMetrics(ctx context.Context, addr string) error {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, s.providers.MetricsHandler)

	s.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		serveErr := s.metrics.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.providers.Logger.Error("metrics server stopped", "error", serveErr)
		}
	}()

	s.providers.Logger.Info("serving metrics", "addr", listener.Addr().String(), "path", metricsPath)

	return nil
}

// close stops the metrics listener and flushes telemetry.
func (s *session) close() {
	if s.metrics != nil {
		err := s.metrics.Shutdown(context.Background())
		if err != nil {
			s.providers.Logger.Warn("metrics server shutdown failed", "error", err)
		}
	}

	err := s.providers.Shutdown(context.Background())
	if err != nil && s.providers.Logger != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
