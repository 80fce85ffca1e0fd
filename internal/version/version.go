// Package version reports the build version of the binary.
package version

import "runtime/debug"

// Version is set at build time with -ldflags "-X".
var Version = ""

// String returns the version, falling back to module build info.
func String() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "dev"
	}
	return info.Main.Version
}
