// Package version derives the build identifier from embedded VCS metadata.
package version

import "runtime/debug"

const appName = "maestro"

// Commit is the short VCS revision, or "dev" when the binary was built
// without VCS info (go test, source tarballs).
var Commit = vcsRevision()

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 8 {
			return s.Value[:8]
		}
	}
	return "dev"
}

// Full returns "maestro/<commit>" for logs and user-agent strings.
func Full() string {
	return appName + "/" + Commit
}
