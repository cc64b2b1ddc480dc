package auth

import (
	"fmt"
	"net/http"

	"github.com/verinode/token-registry-server/internal/config"
)

// NewFromConfig creates authentication middleware from config. The signing
// secret is resolved once, at construction time, and held only by the
// validator; it is never written back into the configuration or any log.
func NewFromConfig(cfg *config.AuthConfig) (func(http.Handler) http.Handler, error) {
	secret, err := cfg.GetSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve auth secret: %w", err)
	}

	var realm string
	if cfg != nil {
		realm = cfg.Realm
	}

	return NewMiddleware(NewHMACValidator([]byte(secret)), realm), nil
}
