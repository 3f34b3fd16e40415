// Package version carries build information stamped in at link time.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String formats the full build description for the CLI.
func String() string {
	return fmt.Sprintf("veridoc %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
