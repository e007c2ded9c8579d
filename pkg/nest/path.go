package nest

import (
	"regexp"
	"strings"
)

var repeatedSlashes = regexp.MustCompile(`/+`)

// NormalizePath collapses runs of '/' into one. It does not trim a
// trailing slash or otherwise rewrite the path.
func NormalizePath(path string) string {
	return repeatedSlashes.ReplaceAllString(path, "/")
}

// JoinRoutePath joins a controller prefix and a route path into the path
// bound on the transport. Separators are collapsed and a trailing '/' is
// dropped, so "users" + "" binds "/users" as well as "users" + "/".
func JoinRoutePath(prefix, path string) string {
	joined := NormalizePath("/" + prefix + "/" + path)
	if len(joined) > 1 {
		joined = strings.TrimSuffix(joined, "/")
	}
	return joined
}

// PathPartType represents the type of a route path segment
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart represents a single segment of a route path
type PathPart struct {
	Type PathPartType
	// Value is the literal text for static parts and the name for
	// parameters
	Value string
}

// RoutePath is a route path in ":name" / "*" syntax
type RoutePath string

// Parts splits the path into segments. Empty segments are dropped.
func (p RoutePath) Parts() []PathPart {
	var parts []PathPart
	for _, segment := range strings.Split(string(p), "/") {
		switch {
		case segment == "":
			continue
		case segment == "*" || strings.HasPrefix(segment, "*"):
			parts = append(parts, PathPart{Type: WildcardPart, Value: strings.TrimPrefix(segment, "*")})
		case strings.HasPrefix(segment, ":"):
			parts = append(parts, PathPart{Type: ParameterPart, Value: segment[1:]})
		default:
			parts = append(parts, PathPart{Type: StaticPart, Value: segment})
		}
	}
	return parts
}

// ParamNames returns the keys the path parameters are read by, in order.
// Every transport keys the catch-all "*".
func (p RoutePath) ParamNames() []string {
	var names []string
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			names = append(names, part.Value)
		case WildcardPart:
			names = append(names, "*")
		}
	}
	return names
}

// MatchPathPrefix reports whether path lies under prefix on a segment
// boundary. A trailing "*" or "/*" on prefix is ignored.
func MatchPathPrefix(prefix, path string) bool {
	prefix = strings.TrimSuffix(NormalizePath(prefix), "*")
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	path = NormalizePath(path)
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
