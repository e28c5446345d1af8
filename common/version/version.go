// Package version exposes build metadata injected with -ldflags.
package version

import "fmt"

var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info returns "kanri <version> (<commit>, built <time>)".
func Info() string {
	return fmt.Sprintf("kanri %s (%s, built %s)", Version, GitCommit, BuildTime)
}
