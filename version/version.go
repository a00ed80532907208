// Package version identifies the build of the inrack binaries.
package version

import (
	"runtime/debug"
	"sync"
)

// Version is set at link time:
//
//	go build -ldflags "-X github.com/inrack/inrack/version.Version=$(git describe --dirty)"
var Version string

var revision = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev, dirty string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value[:min(len(s.Value), 7)]
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if rev == "" {
		return ""
	}
	return rev + dirty
})

// String returns Version, or the short VCS revision of the build when
// Version is unset, or "devel".
func String() string {
	if Version != "" {
		return Version
	}
	if rev := revision(); rev != "" {
		return rev
	}
	return "devel"
}
