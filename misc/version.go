// Package misc keeps program identity: name, version and source revision.
package misc

import (
	"runtime/debug"
)

const appName = "ionc"

// set with -ldflags "-X ionkit/misc.version=..."
var (
	version = "dev"
	gitHash = ""
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

// GetGitHash returns revision program was built from, "unknown" when
// neither linker nor build info has it.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
