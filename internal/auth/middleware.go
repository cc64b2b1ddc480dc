// Package auth provides bearer-credential authentication for the admin API.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/verinode/token-registry-server/internal/api/common"
)

// defaultRealm is the default protection space identifier.
const defaultRealm = "token-registry"

// bearerMiddleware guards requests with a shared-secret admin credential.
type bearerMiddleware struct {
	validator CredentialValidator
	realm     string
}

// NewMiddleware returns HTTP middleware that rejects every request not
// carrying a valid bearer credential. An empty realm falls back to the
// default.
func NewMiddleware(validator CredentialValidator, realm string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = defaultRealm
	}
	m := &bearerMiddleware{
		validator: validator,
		realm:     realm,
	}
	return m.middleware
}

func (m *bearerMiddleware) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, err := extractBearerCredential(r)
		if err != nil {
			slog.Warn("Credential extraction failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeUnauthorized(w)
			return
		}

		if err := m.validator.Validate(credential); err != nil {
			slog.Warn("Credential rejected",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerCredential pulls the credential out of the Authorization
// header. The scheme comparison is case-insensitive per RFC 9110.
func extractBearerCredential(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("authorization header required")
	}

	scheme, credential, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header must use the Bearer scheme")
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", errors.New("bearer credential is empty")
	}
	return credential, nil
}

// sanitizeHeaderValue makes s safe for use inside a quoted-string header
// value: CR and LF are dropped and quotes are backslash-escaped.
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	return strings.NewReplacer("\r", "", "\n", "", `"`, `\"`).Replace(s)
}

// writeUnauthorized writes the 401 response with a bare RFC 6750 challenge.
// Every authentication failure produces this exact response; the challenge
// carries no error attribute and the body never names the failed check.
func (m *bearerMiddleware) writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="%s"`, sanitizeHeaderValue(m.realm)))
	common.WriteErrorResponse(w, "unauthorized", http.StatusUnauthorized)
}

// WrapWithPublicPaths returns a middleware that lets requests on public
// paths straight through and sends everything else through authMw. The
// authenticated branch is wrapped once up front rather than per request.
func WrapWithPublicPaths(
	authMw func(http.Handler) http.Handler,
	publicPaths []string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authenticated := authMw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}
			authenticated.ServeHTTP(w, r)
		})
	}
}
