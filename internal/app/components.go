package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verinode/token-registry-server/internal/service"
)

// Components holds the service wiring the HTTP layer is built on
type Components struct {
	// TokenService provides token registry business logic
	TokenService service.TokenRegistry

	// Pool is the database connection pool backing the service. It is
	// nil when a service was injected directly, in which case the
	// injector owns the pool lifecycle.
	Pool *pgxpool.Pool
}
