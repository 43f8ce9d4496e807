// Package version holds build information injected at link time:
//
//	go build -ldflags "-X sitesmith/pkg/version.Version=v0.3.0 -X sitesmith/pkg/version.Commit=$(git rev-parse --short HEAD)"
package version

import "fmt"

//nolint:gochecknoglobals // set via ldflags
var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit SHA of the build.
	Commit = "none"

	// Date is the build date in ISO format.
	Date = "unknown"
)

// String renders all three fields on one line.
func String() string {
	return fmt.Sprintf("sitesmith %s (commit %s, built %s)", Version, Commit, Date)
}
