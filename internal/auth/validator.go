package auth

//go:generate mockgen -destination=mocks/mock_validator.go -package=mocks -source=validator.go CredentialValidator

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned for every credential that fails
// validation. Callers never learn which check rejected it; the cause is
// wrapped for server-side logs only.
var ErrInvalidCredential = errors.New("invalid credential")

// CredentialValidator abstracts credential validation for testability.
type CredentialValidator interface {
	Validate(credential string) error
}

// adminClaims is the payload carried by admin credentials.
type adminClaims struct {
	jwt.RegisteredClaims
}

// HMACValidator validates admin credentials: JWTs signed with HS256 over
// a shared secret, carrying a subject and an expiry. It is stateless and
// safe for concurrent use.
type HMACValidator struct {
	secret []byte
}

var _ CredentialValidator = (*HMACValidator)(nil)

// NewHMACValidator creates a validator over the given shared secret.
func NewHMACValidator(secret []byte) *HMACValidator {
	return &HMACValidator{secret: secret}
}

// Validate checks the credential's structure, signature, expiry and
// subject. Any failure collapses into ErrInvalidCredential.
func (v *HMACValidator) Validate(credential string) error {
	claims := &adminClaims{}
	_, err := jwt.ParseWithClaims(
		credential,
		claims,
		v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if claims.Subject == "" {
		return fmt.Errorf("%w: missing subject claim", ErrInvalidCredential)
	}
	return nil
}

func (v *HMACValidator) keyFunc(_ *jwt.Token) (any, error) {
	return v.secret, nil
}
