package version

import (
	"fmt"
	"runtime"
)

const name = "pdfgateway"

// Build information. Populated at build-time via ldflags.
var (
	Version   = "dev"             // Version is the semantic version (e.g., "1.2.3")
	GitCommit = "unknown"         // GitCommit is the git commit hash
	BuildDate = "unknown"         // BuildDate is the build timestamp
	GoVersion = runtime.Version() // GoVersion is the Go version used to build
)

// Info returns version information as a struct
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// Get returns the version information
func Get() Info {
	return Info{
		Name:      name,
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: GoVersion,
	}
}

// String returns a human-readable version string
func String() string {
	commit := GitCommit[:min(7, len(GitCommit))]
	if Version == "dev" {
		return fmt.Sprintf("%s %s (commit %s, built %s with %s)", name, Version, commit, BuildDate, GoVersion)
	}
	return fmt.Sprintf("%s v%s (commit %s, built %s with %s)", name, Version, commit, BuildDate, GoVersion)
}
