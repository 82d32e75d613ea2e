// Package layout maps source version folders to output folders.
//
// Mods ship their content either at the root ("base") or under
// version-qualified sub-trees like "1.5/". The resolver decides which of
// those trees are processed and where their output lands, and can optionally
// consolidate every version into one target version or flatten nested
// "Mods/<name>" wrapper layouts.
//
// All functions are pure transforms on slash-separated relative paths
// ("." is the mod root); no I/O happens here.
package layout

import (
	"path"
	"regexp"
	"strings"
)

const (
	// VersionAll processes every discovered version directory.
	VersionAll = "All"
	// VersionBase processes only the unqualified base tree.
	VersionBase = "Base"

	// wrapperDir is the wrapper folder removed by flattening, compared
	// case-insensitively.
	wrapperDir = "mods"
)

// versionPattern matches a version-number path segment like "1.5".
var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// Options select which source trees are processed and how they map to
// output.
type Options struct {
	// Version is VersionAll, VersionBase, or a specific version number.
	// Empty means VersionAll.
	Version string
	// MergeVersions redirects every matching tree into Version instead of
	// filtering.
	MergeVersions bool
	// FlattenMods removes "Mods/<name>" wrapper segments from output
	// paths.
	FlattenMods bool
}

// Resolve maps a source-relative directory to its output-relative directory.
// ok is false when the directory is excluded by the version filter — callers
// must not even read such trees.
func Resolve(rel string, opt Options) (out string, ok bool) {
	out = path.Clean(strings.TrimPrefix(rel, "./"))
	if out == "" {
		out = "."
	}

	version := opt.Version
	if version != "" && version != VersionAll {
		if opt.MergeVersions {
			out = mergeInto(out, version)
		} else if !matchesVersion(out, version) {
			return "", false
		}
	}

	if opt.FlattenMods {
		out = flatten(out)
	}
	return out, true
}

// IsVersionSegment reports whether a path segment is a version number.
func IsVersionSegment(s string) bool {
	return versionPattern.MatchString(s)
}

// Label renders a relative source directory for logs: the base tree shows as
// "Base".
func Label(rel string) string {
	if rel == "." || rel == "" {
		return VersionBase
	}
	return rel
}

func matchesVersion(rel, version string) bool {
	if version == VersionBase {
		return rel == "."
	}
	return rel == version
}

// mergeInto rewrites a source path so it lands under the target version:
// a version-number first segment is replaced, the base tree maps directly
// under the target, everything else is nested below it.
func mergeInto(rel, version string) string {
	target := "."
	if version != VersionBase {
		target = version
	}
	if rel == "." {
		return target
	}
	parts := strings.Split(rel, "/")
	if IsVersionSegment(parts[0]) {
		return path.Join(append([]string{target}, parts[1:]...)...)
	}
	return path.Join(target, rel)
}

// flatten removes the first "Mods/<name>" pair from the path, collapsing
// nested-package layouts into the top level.
func flatten(rel string) string {
	if rel == "." {
		return rel
	}
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		if strings.EqualFold(p, wrapperDir) && i+1 < len(parts) {
			parts = append(parts[:i:i], parts[i+2:]...)
			break
		}
	}
	if len(parts) == 0 {
		return "."
	}
	return path.Join(parts...)
}
