// Package version carries the build identification stamped in by the
// linker.
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

// String returns the full build identification line.
func String() string {
	return fmt.Sprintf("navcore %s (%s, built %s)", Version, GitSHA, BuildTime)
}
