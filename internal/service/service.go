// Package service provides the business logic for the token registry API
package service

import (
	"context"
	"errors"

	"github.com/verinode/token-registry-server/internal/tokens"
)

// ErrTokenNotFound is returned when no token is registered under the
// requested identifier
var ErrTokenNotFound = errors.New("token not found")

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go TokenRegistry

// TokenRegistry defines the interface for token registry operations
type TokenRegistry interface {
	// CheckReadiness checks if the registry is ready to serve requests
	CheckReadiness(ctx context.Context) error

	// TokenCount returns the number of registered tokens
	TokenCount(ctx context.Context) (int64, error)

	// StoreToken writes a token record under its identifier, replacing any
	// record already registered there
	StoreToken(ctx context.Context, token tokens.Token) error

	// GetToken returns the token registered under the given identifier
	GetToken(ctx context.Context, id tokens.TokenID) (*tokens.Token, error)

	// ListTokens returns all registered tokens ordered by identifier
	ListTokens(ctx context.Context) ([]tokens.Token, error)
}
