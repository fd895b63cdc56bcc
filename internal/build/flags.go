// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata injected at link time, for example:
//
//	go build -ldflags "-X dopplerlab/internal/build.buildName=dopplerlab \
//	    -X dopplerlab/internal/build.buildVersion=0.1.0 ..."
//
// Development builds run without flags and report "unknown" for every field.
package build

import (
	"fmt"
	"strings"
)

type ldFlags struct {
	Name        string // Application name
	Description string // One-line description used by the CLI
	Time        string // Build timestamp (RFC3339)
	Commit      string // Git commit hash
	Version     string // Semantic version
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:        "dopplerlab",
		Description: "Real-time tone and Doppler gesture analyzer",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "unknown",
	}
)

// Initialize copies the ldflags variables into the build information. Flags
// that were not provided keep their defaults and are reported in the returned
// error, which callers may treat as a warning for development builds.
func Initialize() error {
	var missing []string

	set := func(dst *string, val, name string) {
		if val == "" {
			missing = append(missing, name)
			return
		}
		*dst = val
	}
	set(&buildFlags.Name, buildName, "BuildName")
	set(&buildFlags.Time, buildTime, "BuildTime")
	set(&buildFlags.Commit, buildCommit, "BuildCommit")
	set(&buildFlags.Version, buildVersion, "BuildVersion")

	if len(missing) > 0 {
		return fmt.Errorf("build flags not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}
