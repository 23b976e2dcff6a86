// Package version holds build metadata for the flatscraper binary.
//
// Values are injected at link time:
//
//	go build -ldflags "-X github.com/jmylchreest/flatscraper/internal/version.Version=1.0.0"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the semantic version, "dev" for local builds.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildDate is the UTC build timestamp in RFC3339 format.
	BuildDate = "unknown"
)

// Info is the structured form printed by "flatscraper version --json".
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns the version, e.g. "1.2.0".
func String() string {
	return Version
}

// Full returns a multi-line description.
func Full() string {
	i := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "flatscraper %s\n", i.Version)
	fmt.Fprintf(&sb, "  commit:  %s\n", i.Commit)
	fmt.Fprintf(&sb, "  built:   %s\n", i.BuildDate)
	fmt.Fprintf(&sb, "  go:      %s (%s)", i.GoVersion, i.Platform)
	return sb.String()
}
