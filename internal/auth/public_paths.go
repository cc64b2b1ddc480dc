package auth

import (
	"path"
	"strings"
)

// IsPublicPath reports whether requestPath falls under any of the
// configured public paths. Matching is segment-aware: /health covers
// /health and /health/check but not /healthcheck. Requests that smuggle
// encoded separators or dots are never public, and traversal sequences
// are collapsed before comparison, so /health/../tokens is judged as
// /tokens rather than /health.
func IsPublicPath(requestPath string, publicPaths []string) bool {
	// %2f and %2e would change meaning once decoded downstream.
	lower := strings.ToLower(requestPath)
	if strings.Contains(lower, "%2f") || strings.Contains(lower, "%2e") {
		return false
	}

	cleaned := normalizePath(requestPath)

	for _, p := range publicPaths {
		public := normalizePath(p)

		// A public root opens the whole tree.
		if public == "/" {
			return true
		}

		if cleaned == public || strings.HasPrefix(cleaned, public+"/") {
			return true
		}
	}
	return false
}

// normalizePath collapses traversal sequences and duplicate slashes and
// anchors the result at /.
func normalizePath(p string) string {
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
