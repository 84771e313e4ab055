// Package version holds the build version for grab.
package version

import (
	"errors"
	"runtime/debug"
	"strings"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is the git commit SHA, set at build time via -ldflags.
var Commit = ""

// ErrUnknownVersion is returned by Current for development builds.
var ErrUnknownVersion = errors.New("app version not set at build time")

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Current returns the running version as MAJOR.MINOR.PATCH without a "v"
// prefix. It prefers the ldflags value and falls back to the module version
// recorded by `go install`.
func Current() (string, error) {
	if v := normalize(Version); v != "" && v != "dev" {
		return v, nil
	}
	if bi, ok := readBuildInfo(); ok {
		if v := normalize(bi.Main.Version); v != "" && v != "(devel)" {
			return v, nil
		}
	}
	return "", ErrUnknownVersion
}

func normalize(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// FullVersion returns the version string with commit if available.
// Format: "vX.Y.Z (commit <shortsha>)" or "dev" for dev builds.
func FullVersion() string {
	if Commit != "" {
		return Version + " (commit " + Commit + ")"
	}
	return Version
}
