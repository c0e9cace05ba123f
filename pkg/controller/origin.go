package controller

import "strings"

// OriginAllowed reports whether origin exactly matches one of allowed, ignoring
// case and a trailing slash. An empty origin never matches.
func OriginAllowed(allowed []string, origin string) bool {
	origin = canonicalOrigin(origin)
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if canonicalOrigin(a) == origin {
			return true
		}
	}

	return false
}

func canonicalOrigin(s string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "/"))
}
