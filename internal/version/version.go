// Package version reports the provekit release.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// commit is set at build time with -ldflags "-X .../internal/version.commit=<sha>".
var commit string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// Full returns the version followed by the build commit when known.
func Full() string {
	if commit == "" {
		return Get()
	}
	return Get() + " (" + commit + ")"
}
