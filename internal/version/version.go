// Package version reports the version of the aisasm module linked into the
// running binary.
package version

import "runtime/debug"

// Default is returned when no module version is recorded, such as in tests
// or when built from a checkout with "go build".
const Default = "dev"

const modulePath = "github.com/aisre/aisasm"

// GetVersion returns the version of github.com/aisre/aisasm as recorded in
// the build info of the binary.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Default
	}
	return versionOf(info)
}

func versionOf(info *debug.BuildInfo) string {
	if info.Main.Path == modulePath {
		return normalize(info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil {
			return normalize(dep.Replace.Version)
		}
		return normalize(dep.Version)
	}
	return Default
}

func normalize(v string) string {
	// "(devel)" is recorded for the main module of a local build.
	if v == "" || v == "(devel)" {
		return Default
	}
	return v
}
