// Package buildinfo reports the version stamped into the binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X 'github.com/m3rciful/stickerbot/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/stickerbot/core/buildinfo.Commit=abcdef0' \
//	  -X 'github.com/m3rciful/stickerbot/core/buildinfo.Date=2025-08-30T12:00:00Z'"
var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the source revision; "local" falls back to the VCS stamp.
	Commit = "local"
	// Date is the build time in RFC3339.
	Date = ""
)

// Revision returns Commit, or the revision recorded by the Go toolchain when
// the binary was built without ldflags.
func Revision() string {
	if Commit != "local" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return Commit
}

// String formats the version line printed by the CLI.
func String() string {
	s := fmt.Sprintf("stickerbot %s (%s)", Version, Revision())
	if Date != "" {
		s += " " + Date
	}
	return s
}
