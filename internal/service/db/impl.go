// Package database implements the token registry service on PostgreSQL,
// using pgx for connections and sqlc-generated queries for data access.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/verinode/token-registry-server/internal/db/sqlc"
	"github.com/verinode/token-registry-server/internal/otel"
	"github.com/verinode/token-registry-server/internal/service"
	"github.com/verinode/token-registry-server/internal/tokens"
)

type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option configures the service under construction
type Option func(*options) error

// WithConnectionPool supplies the pgx pool backing every query. Closing the
// pool stays with the caller.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer enables span emission for storage calls. Without it a storage
// call degrades to the span already in the context.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// dbService answers registry operations from PostgreSQL
type dbService struct {
	pool    *pgxpool.Pool
	querier sqlc.Querier
	tracer  trace.Tracer
}

var _ service.TokenRegistry = (*dbService)(nil)

// New builds the registry service from the given options. A connection pool
// is mandatory.
func New(opts ...Option) (service.TokenRegistry, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}

	return &dbService{
		pool:    o.pool,
		querier: sqlc.New(o.pool),
		tracer:  o.tracer,
	}, nil
}

// CheckReadiness pings the database, reporting whether storage can serve
// requests
func (s *dbService) CheckReadiness(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// TokenCount returns the number of registered tokens
func (s *dbService) TokenCount(ctx context.Context) (int64, error) {
	ctx, span := s.startSpan(ctx, "dbService.TokenCount")
	defer span.End()

	count, err := s.querier.CountTokens(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	span.SetAttributes(otel.AttrResultCount.Int64(count))

	return count, nil
}

// StoreToken writes a token record under its identifier, replacing any record
// already registered there
func (s *dbService) StoreToken(ctx context.Context, token tokens.Token) error {
	ctx, span := s.startSpan(ctx, "dbService.StoreToken")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		otel.AttrTokenID.Int(int(token.ID)),
		otel.AttrTokenSymbol.String(token.Symbol),
	)

	id, err := s.querier.UpsertToken(ctx, sqlc.UpsertTokenParams{
		ID:       int32(token.ID),
		Address:  token.Address.Hex(),
		Symbol:   token.Symbol,
		Decimals: int16(token.Decimals),
	})
	if err != nil {
		otel.RecordError(span, err)
		return fmt.Errorf("failed to store token: %w", err)
	}

	slog.InfoContext(ctx, "Token stored",
		"duration_ms", time.Since(start).Milliseconds(),
		"token_id", id,
		"symbol", token.Symbol,
	)

	return nil
}

// GetToken returns the token registered under the given identifier
func (s *dbService) GetToken(ctx context.Context, id tokens.TokenID) (*tokens.Token, error) {
	ctx, span := s.startSpan(ctx, "dbService.GetToken")
	defer span.End()

	span.SetAttributes(otel.AttrTokenID.Int(int(id)))

	row, err := s.querier.GetToken(ctx, int32(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", service.ErrTokenNotFound, id)
		}
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	token := tokenFromRow(row)
	return &token, nil
}

// ListTokens returns all registered tokens ordered by identifier
func (s *dbService) ListTokens(ctx context.Context) ([]tokens.Token, error) {
	ctx, span := s.startSpan(ctx, "dbService.ListTokens")
	defer span.End()

	rows, err := s.querier.ListTokens(ctx)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	result := make([]tokens.Token, 0, len(rows))
	for _, row := range rows {
		result = append(result, tokenFromRow(row))
	}

	span.SetAttributes(otel.AttrResultCount.Int(len(result)))

	slog.DebugContext(ctx, "ListTokens completed", "count", len(result))

	return result, nil
}

// tokenFromRow converts a database row into the domain representation.
func tokenFromRow(row sqlc.Token) tokens.Token {
	return tokens.Token{
		ID:       tokens.TokenID(row.ID),
		Address:  common.HexToAddress(row.Address),
		Symbol:   row.Symbol,
		Decimals: uint8(row.Decimals),
	}
}
