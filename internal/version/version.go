// Package version holds build metadata set through -ldflags.
package version

import "fmt"

// Overridden at build time, e.g.
//
//	go build -ldflags "-X github.com/itsmostafa/scriptbridge/internal/version.Version=v0.2.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String returns the version with its commit and build date.
func String() string {
	if Commit == "unknown" && BuildDate == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}
