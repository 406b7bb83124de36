// Package version carries build metadata for the tpm tools. The values are
// set at link time, e.g.
//
//	go build -ldflags "-X github.com/banshee-data/tpm.report/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for a -version flag.
func String(tool string) string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", tool, Version, GitSHA, BuildTime)
}
