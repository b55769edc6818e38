// Package version holds build metadata injected via ldflags:
//
//	-X github.com/kailas-cloud/vecrag/internal/version.Version=v0.3.0
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders "v0.3.0 (abc1234, 2026-01-02)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, Date)
}
