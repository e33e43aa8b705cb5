package extreg

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

var reSeparators = regexp.MustCompile(`[/\\]+`)

// CompileGlob compiles a pattern that supports double-asterisk (**)
// patterns. Path components are separated by forward slashes, so callers
// must match against slash separated paths.
func CompileGlob(pattern string) (glob.Glob, error) {
	return glob.Compile(pattern, '/')
}

// NormalizePath returns the canonical form of a path used for equality
// checks. Every run of forward or backward slashes is collapsed into a
// single forward slash and any trailing slash is removed. The case is
// preserved.
//
// Examples:
//   - C:\ext\foo\ -> C:/ext/foo
//   - //srv//share -> /srv/share
func NormalizePath(p string) string {
	return strings.TrimRight(reSeparators.ReplaceAllString(p, "/"), "/")
}

// SamePath reports whether a and b refer to the same registration target.
func SamePath(a, b string) bool {
	return NormalizePath(a) == NormalizePath(b)
}

// ParentDir returns the directory containing the given extension bundle.
// Both separator styles are accepted, independent of the host OS, and the
// original separators of the remaining prefix are kept. Trailing
// separators on the input are ignored.
//
// Examples:
//   - C:\Tools\CPSK.extension -> C:\Tools
//   - /opt/ext/CPSK.extension/ -> /opt/ext
//   - CPSK.extension -> .
func ParentDir(p string) string {
	p = strings.TrimRight(p, `/\`)
	n := strings.LastIndexAny(p, `/\`)
	switch {
	case n < 0:
		return "."
	case n == 0:
		return p[:1]
	}

	parent := strings.TrimRight(p[:n], `/\`)
	if parent == "" {
		return p[:1]
	}
	// keep the separator of a bare drive, e.g. C:\
	if len(parent) == 2 && parent[1] == ':' {
		return p[:3]
	}

	return parent
}

func trim(s []string) {
	for i, e := range s {
		s[i] = strings.TrimSpace(e)
	}
}

// unquote removes one layer of matching double or single quotes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}
