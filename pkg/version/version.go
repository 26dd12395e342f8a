// Package version provides build information for Redirector.
package version

import (
	"fmt"
	"runtime"
)

// Version and Commit are overridden at build time with
// -ldflags "-X github.com/loganrossus/redirector/pkg/version.Version=..."
var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
	}
}

// String formats the build information for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, %s)", i.Version, i.Commit, i.GoVersion)
}
