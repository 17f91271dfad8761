// Package version holds build metadata for the ordmap binary.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Set at link time with -ldflags "-X github.com/Sumatoshi-tech/ordmap/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills Commit and Date from the embedded VCS build info
// when they were not set at link time.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("ordmap %s (commit: %s, built: %s)", Version, Commit, Date)
}
