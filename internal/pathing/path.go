// Package pathing models backup locations: a path that may carry a remote
// host address prefix and deferred {TOKEN} substitutions.
package pathing

import (
	"path"
	"regexp"
	"strings"
)

// Template tokens recognized in configured paths. Anything else inside
// braces is left verbatim.
const (
	TokenToday     = "TODAY"
	TokenLatest    = "LATEST"
	TokenConfigDir = "TOML_FOLDER"
)

var tokenPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Path is a location value: an optional host address and a slash-separated
// path which may still contain unresolved tokens. The zero value is the
// local empty path.
type Path struct {
	Address string // empty for local paths
	Path    string
}

// Parse splits an optional "address:" prefix off a location string.
// The prefix is only an address when it appears before the first slash,
// so "/folder/a:b" stays a local path.
func Parse(s string) Path {
	if i := strings.Index(s, ":"); i > 0 && !strings.Contains(s[:i], "/") && !strings.Contains(s[:i], "{") {
		return Path{Address: s[:i], Path: s[i+1:]}
	}
	return Path{Path: s}
}

// IsRemote reports whether the path carries a host address.
func (p Path) IsRemote() bool { return p.Address != "" }

// String renders the canonical "address:path" form.
func (p Path) String() string {
	if p.Address == "" {
		return p.Path
	}
	return p.Address + ":" + p.Path
}

// WithTrailingSlash renders the path with exactly one trailing slash.
// Sync tools treat "dir" and "dir/" differently, so rendering is explicit.
func (p Path) WithTrailingSlash() string {
	return strings.TrimRight(p.String(), "/") + "/"
}

// IsAbsolute reports whether the path is absolute. A path whose first
// segment is an unresolved token counts as pending-absolute: its expansion
// is rooted once the token resolves.
func (p Path) IsAbsolute() bool {
	return strings.HasPrefix(p.Path, "/") || strings.HasPrefix(p.Path, "{")
}

// HasToken reports whether the given token is still unresolved in the path.
func (p Path) HasToken(name string) bool {
	return strings.Contains(p.Path, "{"+name+"}")
}

// Format substitutes the given token values. Tokens missing from vars and
// unrecognized {...} substrings are left untouched; extra vars are ignored.
func (p Path) Format(vars map[string]string) Path {
	p.Path = tokenPattern.ReplaceAllStringFunc(p.Path, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
	return p
}

// Join appends relative elements to the path.
func (p Path) Join(elem ...string) Path {
	p.Path = path.Join(append([]string{p.Path}, elem...)...)
	return p
}

// Parent returns the path's parent directory on the same host.
func (p Path) Parent() Path {
	p.Path = path.Dir(p.Path)
	return p
}

// Base returns the last path element.
func (p Path) Base() string { return path.Base(p.Path) }

// Overlaps reports whether two target paths are equal or one contains the
// other. An empty target denotes the target root itself, an ancestor of
// every other target. Used to reject configurations where one backup would
// silently write inside another.
func Overlaps(a, b string) bool {
	a = strings.TrimRight(a, "/")
	b = strings.TrimRight(b, "/")
	if a == "" || b == "" {
		return true
	}
	return a == b || strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
