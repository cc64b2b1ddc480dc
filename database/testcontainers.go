package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	testImage    = "postgres:16-alpine"
	testDatabase = "registry_test"
	testUser     = "registry"
	testPassword = "registry-test-password"
)

// discardLogger silences testcontainers' container lifecycle chatter,
// which otherwise drowns out test output.
type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

var _ tclog.Logger = discardLogger{}

// SetupTestDBContainer starts a Postgres container and returns its connection string.
// No migrations are applied; callers drive the schema themselves.
func SetupTestDBContainer(t *testing.T) (string, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		testImage,
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(discardLogger{}),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connStr, func() {
		tc.CleanupContainer(t, container)
	}
}

// SetupTestDB starts a Postgres container, brings the schema to the latest
// migration and returns a pool connected to it.
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	connStr, cleanupContainer := SetupTestDBContainer(t)

	m, err := NewFromConnectionString(connStr)
	require.NoError(t, err)

	// Apply, roll back, and reapply so both directions stay covered.
	require.NoError(t, m.Up())
	require.NoError(t, m.Down())
	require.NoError(t, m.Up())

	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	pool, err := pgxpool.New(context.Background(), connStr)
	require.NoError(t, err)

	return pool, func() {
		pool.Close()
		cleanupContainer()
	}
}
