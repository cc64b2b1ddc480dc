package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPublicPath(t *testing.T) {
	t.Parallel()

	standardPublicPaths := []string{"/health", "/readiness", "/version"}

	tests := []struct {
		name        string
		path        string
		publicPaths []string
		want        bool
	}{
		// Plain matching
		{"exact match", "/health", standardPublicPaths, true},
		{"subpath match", "/version/detail", standardPublicPaths, true},
		{"no match", "/tokens", standardPublicPaths, false},
		{"empty public paths", "/any", []string{}, false},
		{"nil public paths", "/health", nil, false},

		// Traversal must not smuggle a protected path under a public prefix
		{"traversal to protected", "/health/../tokens", standardPublicPaths, false},
		{"traversal multiple levels", "/version/../../tokens/7", standardPublicPaths, false},
		{"traversal stays in public", "/version/v1/../v2", standardPublicPaths, true},

		// Encoded separators never match
		{"encoded path separators", "/health/..%2f..%2ftokens", standardPublicPaths, false},

		// A string prefix is not a segment prefix
		{"healthcheck not health", "/healthcheck", standardPublicPaths, false},
		{"versions not version", "/versions", standardPublicPaths, false},

		// Segment-aware prefixes
		{"health/check matches", "/health/check", standardPublicPaths, true},
		{"trailing slash", "/health/", standardPublicPaths, true},

		// Collapsed slashes and dot segments
		{"double slash", "//health", standardPublicPaths, true},
		{"dot reference", "/./version/detail", standardPublicPaths, true},

		// A public root opens everything
		{"root exact", "/", []string{"/"}, true},
		{"root makes all public", "/tokens", []string{"/"}, true},

		// URL paths are case-sensitive
		{"case sensitive", "/Health", standardPublicPaths, false},

		// Normalization and traversal together
		{"traversal with normalization", "//health/..//tokens", standardPublicPaths, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsPublicPath(tt.path, tt.publicPaths)
			assert.Equal(t, tt.want, got, "path=%q, publicPaths=%v", tt.path, tt.publicPaths)
		})
	}
}
