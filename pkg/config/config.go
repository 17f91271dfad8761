// Package config provides configuration loading and validation for ordmap.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidKeys        = errors.New("key count must be positive")
	ErrInvalidKeySpace    = errors.New("key space must be at least the key count")
	ErrInvalidInterval    = errors.New("check interval must not be negative")
	ErrInvalidRounds      = errors.New("bench rounds must be positive")
	ErrInvalidDegree      = errors.New("btree degree must be at least 2")
	ErrUnknownBackend     = errors.New("unknown bench backend")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidOutput      = errors.New("invalid output format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const minBTreeDegree = 2

// EnvPrefix is the prefix of environment variables that override configuration keys.
const EnvPrefix = "ORDMAP"

// Config holds all configuration for the ordmap tool.
type Config struct {
	Workload  WorkloadConfig  `mapstructure:"workload"`
	Bench     BenchConfig     `mapstructure:"bench"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Output    OutputConfig    `mapstructure:"output"`
}

// WorkloadConfig drives the stress workload.
type WorkloadConfig struct {
	Keys             int   `mapstructure:"keys"`
	KeySpace         int   `mapstructure:"key_space"`
	Seed             int64 `mapstructure:"seed"`
	ValidateEvery    int   `mapstructure:"validate_every"`
	CheckBoundsEvery int   `mapstructure:"check_bounds_every"`
}

// BenchConfig drives the backend comparison.
type BenchConfig struct {
	Backends    []string `mapstructure:"backends"`
	Keys        int      `mapstructure:"keys"`
	Rounds      int      `mapstructure:"rounds"`
	BTreeDegree int      `mapstructure:"btree_degree"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds tracing and metrics configuration.
type TelemetryConfig struct {
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	OTLPInsecure    bool          `mapstructure:"otlp_insecure"`
}

// OutputConfig controls how reports are rendered.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// SlogLevel parses the configured log level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	return level, nil
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	// Set defaults.
	setDefaults(viperCfg)

	// Read config file.
	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("ordmap")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/ordmap")
	}

	// Read environment variables.
	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Workload defaults.
	viperCfg.SetDefault("workload.keys", DefaultWorkloadKeys)
	viperCfg.SetDefault("workload.key_space", DefaultWorkloadKeySpace)
	viperCfg.SetDefault("workload.seed", DefaultWorkloadSeed)
	viperCfg.SetDefault("workload.validate_every", DefaultWorkloadValidateEvery)
	viperCfg.SetDefault("workload.check_bounds_every", DefaultWorkloadCheckBoundsEvery)

	// Bench defaults.
	viperCfg.SetDefault("bench.keys", DefaultBenchKeys)
	viperCfg.SetDefault("bench.rounds", DefaultBenchRounds)
	viperCfg.SetDefault("bench.btree_degree", DefaultBenchBTreeDegree)
	viperCfg.SetDefault("bench.backends", KnownBackends())

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.shutdown_timeout", DefaultShutdownTimeout)

	// Output defaults.
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.color", DefaultOutputColor)
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c.Workload.Keys <= 0 {
		return fmt.Errorf("%w: workload.keys=%d", ErrInvalidKeys, c.Workload.Keys)
	}

	if c.Workload.KeySpace < c.Workload.Keys {
		return fmt.Errorf("%w: workload.key_space=%d", ErrInvalidKeySpace, c.Workload.KeySpace)
	}

	if c.Workload.ValidateEvery < 0 || c.Workload.CheckBoundsEvery < 0 {
		return fmt.Errorf("%w: validate_every=%d check_bounds_every=%d",
			ErrInvalidInterval, c.Workload.ValidateEvery, c.Workload.CheckBoundsEvery)
	}

	err := c.Bench.validate()
	if err != nil {
		return err
	}

	_, err = c.Logging.SlogLevel()
	if err != nil {
		return err
	}

	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	if !slices.Contains([]string{FormatTable, FormatJSON, FormatYAML}, c.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidOutput, c.Output.Format)
	}

	return nil
}

func (c *BenchConfig) validate() error {
	if c.Keys <= 0 {
		return fmt.Errorf("%w: bench.keys=%d", ErrInvalidKeys, c.Keys)
	}

	if c.Rounds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRounds, c.Rounds)
	}

	if c.BTreeDegree < minBTreeDegree {
		return fmt.Errorf("%w: %d", ErrInvalidDegree, c.BTreeDegree)
	}

	known := KnownBackends()

	for _, backend := range c.Backends {
		if !slices.Contains(known, backend) {
			return fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
		}
	}

	return nil
}
