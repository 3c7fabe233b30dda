// Package version reports solrscout build information.
package version

import (
	"fmt"
	"runtime"
)

// Version is the release version, injected with
// -ldflags "-X github.com/Aman-CERP/solrscout/pkg/version.Version=1.2.3".
var Version = "dev"

// Build information injected the same way as Version.
var (
	Commit = "unknown"
	Date   = "unknown"

	// GoVersion is the toolchain the binary was built with.
	GoVersion = runtime.Version()
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String returns a one-line version string with all build info.
func String() string {
	return fmt.Sprintf("solrscout %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns just the version.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
