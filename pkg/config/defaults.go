package config

import "time"

// Workload defaults.
const (
	DefaultWorkloadKeys             = 10000
	DefaultWorkloadKeySpace         = 1 << 20
	DefaultWorkloadSeed             = 1
	DefaultWorkloadValidateEvery    = 1
	DefaultWorkloadCheckBoundsEvery = 16
)

// Benchmark defaults.
const (
	DefaultBenchKeys        = 100000
	DefaultBenchRounds      = 3
	DefaultBenchBTreeDegree = 32
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = FormatText
)

// Telemetry defaults.
const (
	DefaultSampleRatio     = 1.0
	DefaultShutdownTimeout = 5 * time.Second
)

// Output defaults.
const (
	DefaultOutputFormat = FormatTable
	DefaultOutputColor  = true
)

// Output and log formats.
const (
	FormatTable = "table"
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Benchmark backend names.
const (
	BackendOrdmap = "ordmap"
	BackendBTree  = "btree"
	BackendLLRB   = "llrb"
)

// KnownBackends lists every benchmark backend, in report order.
func KnownBackends() []string {
	return []string{BackendOrdmap, BackendBTree, BackendLLRB}
}
