// Package versions reports what build of the admin API binary is running.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknownStr = "unknown"

// Populated through -ldflags at release time. A plain `go build` leaves
// the defaults in place and the VCS stamp embedded in the binary fills
// the gaps.
var (
	// Version is the semantic version of this build
	Version = "dev"
	// Commit is the git revision the binary was built from
	//nolint:goconst // placeholder overridden by the build
	Commit = unknownStr
	// BuildDate records when the binary was built
	//nolint:goconst // placeholder overridden by the build
	BuildDate = unknownStr
	// BuildType is "release" for official builds, anything else is
	// treated as development
	BuildType = "development"
)

// VersionInfo describes the running build
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo resolves the build metadata for the running binary
func GetVersionInfo() VersionInfo {
	return buildVersionInfo(Version, Commit, BuildDate)
}

// String renders the info as a single human-readable line
func (v VersionInfo) String() string {
	return fmt.Sprintf("vtr-admin-api %s (commit %s, built %s, %s, %s)",
		v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

func buildVersionInfo(version, commit, buildDate string) VersionInfo {
	if strings.HasPrefix(version, "dev") {
		commit, buildDate = vcsMetadata(commit, buildDate)
	}

	if buildDate != unknownStr {
		if t, err := time.Parse(time.RFC3339, buildDate); err == nil {
			buildDate = t.Format("2006-01-02 15:04:05 MST")
		}
	}

	// An untagged build takes its identity from the commit
	if version == "dev" {
		version = fmt.Sprintf("build-%.8s", commit)
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// vcsMetadata fills unknown fields from the VCS stamp the Go toolchain
// embeds in binaries built inside a repository
func vcsMetadata(commit, buildDate string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, buildDate
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if commit == unknownStr {
				commit = setting.Value
			}
		case "vcs.time":
			if buildDate == unknownStr {
				buildDate = setting.Value
			}
		}
	}
	return commit, buildDate
}
