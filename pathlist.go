package extreg

import (
	"regexp"
	"strings"
)

var rePathList = regexp.MustCompile(`^\[(.*)\]$`)

// PathList is an ordered list of filesystem paths as stored in a single
// INI value, e.g. ["C:/Tools", "D:/Other"].
type PathList []string

// DecodePathList parses a bracketed, comma separated list of (optionally
// quoted) paths. Values that are not wrapped in brackets decode to an empty
// list. Empty elements are dropped.
func DecodePathList(raw string) PathList {
	m := rePathList.FindStringSubmatch(raw)
	if m == nil {
		return PathList{}
	}

	parts := strings.Split(m[1], ",")
	trim(parts)

	out := make(PathList, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(unquote(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}

	return out
}

// Encode returns the list in its INI value form. Backslashes are converted
// to forward slashes. An empty list encodes as [].
func (pl PathList) Encode() string {
	quoted := make([]string, 0, len(pl))
	for _, p := range pl {
		quoted = append(quoted, `"`+strings.ReplaceAll(p, `\`, "/")+`"`)
	}

	return "[" + strings.Join(quoted, ", ") + "]"
}

// String implements fmt.Stringer.
func (pl PathList) String() string {
	return pl.Encode()
}

// Contains reports whether any entry normalizes to the same path as p.
func (pl PathList) Contains(p string) bool {
	return pl.Index(p) >= 0
}

// Index returns the position of the first entry matching p after
// normalization, or -1.
func (pl PathList) Index(p string) int {
	for i, e := range pl {
		if SamePath(e, p) {
			return i
		}
	}

	return -1
}

// Add appends p unless an equivalent entry exists. The original spelling
// of p is kept. It reports whether p was added.
func (pl PathList) Add(p string) (PathList, bool) {
	if pl.Contains(p) {
		return pl, false
	}

	return append(pl, p), true
}

// Remove drops every entry that normalizes to the same path as p and
// returns the filtered list along with the number of removed entries.
func (pl PathList) Remove(p string) (PathList, int) {
	out := make(PathList, 0, len(pl))
	for _, e := range pl {
		if SamePath(e, p) {
			continue
		}
		out = append(out, e)
	}

	return out, len(pl) - len(out)
}
