package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags. Empty values fall back to the VCS
// settings the Go toolchain stamps into the binary.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Product is the name reported in version strings and the User-Agent.
const Product = "gobexport"

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	Dirty     bool      `json:"dirty,omitempty"`
	BuildTime time.Time `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
}

// Get returns the build information of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    GitCommit,
		GoVersion: runtime.Version(),
	}
	if BuildTime != "" {
		info.BuildTime, _ = time.Parse(time.RFC3339, BuildTime)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.merge(bi.Settings)
	}
	return info
}

// merge fills fields not set at build time from VCS settings.
func (i *Info) merge(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "" {
				i.Commit = s.Value
			}
		case "vcs.modified":
			i.Dirty = s.Value == "true"
		case "vcs.time":
			if i.BuildTime.IsZero() {
				i.BuildTime, _ = time.Parse(time.RFC3339, s.Value)
			}
		}
	}
	if len(i.Commit) > 7 {
		i.Commit = i.Commit[:7]
	}
}

// Release reports whether the binary was built from a tagged version.
func (i Info) Release() bool {
	return i.Version != "dev" && !i.Dirty
}

// Short returns version-commit, marked dirty for modified trees.
func (i Info) Short() string {
	parts := []string{i.Version}
	if i.Commit != "" {
		parts = append(parts, i.Commit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// String returns the short version with the build time.
func (i Info) String() string {
	s := i.Short()
	if !i.BuildTime.IsZero() {
		s += fmt.Sprintf(" (built %s)", i.BuildTime.UTC().Format(time.RFC3339))
	}
	return s
}

// UserAgent returns the User-Agent header sent with every API request.
func UserAgent() string {
	return Product + "/" + Get().Short()
}
