package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/verinode/token-registry-server/database"
)

var (
	ctx    context.Context
	cancel context.CancelFunc

	pgContainer *postgres.PostgresContainer
	dbConnStr   string
	dbPool      *pgxpool.Pool
)

func TestAdminAPIIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Admin API Integration Suite")
}

var _ = BeforeSuite(func() {
	ctx, cancel = context.WithCancel(context.Background())

	// One container serves the whole suite; specs reset the tokens table
	// instead of paying for a fresh database each time.
	var err error
	pgContainer, err = postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("registry_test"),
		postgres.WithUsername("registry"),
		postgres.WithPassword("registry-test-password"),
		postgres.BasicWaitStrategies(),
	)
	Expect(err).NotTo(HaveOccurred())

	dbConnStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	m, err := database.NewFromConnectionString(dbConnStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(m.Up()).To(Succeed())
	srcErr, dbErr := m.Close()
	Expect(srcErr).NotTo(HaveOccurred())
	Expect(dbErr).NotTo(HaveOccurred())

	dbPool, err = pgxpool.New(ctx, dbConnStr)
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if dbPool != nil {
		dbPool.Close()
	}
	if pgContainer != nil {
		Expect(pgContainer.Terminate(context.Background())).To(Succeed())
	}
	cancel()
})

// resetTokens clears the registry so identifier assignment starts from a
// known count.
func resetTokens() {
	_, err := dbPool.Exec(ctx, "TRUNCATE tokens")
	Expect(err).NotTo(HaveOccurred())
}

// createTempDir yields a throwaway directory for config and secret files
func createTempDir(prefix string) string {
	dir, err := os.MkdirTemp("", prefix)
	Expect(err).NotTo(HaveOccurred())
	return dir
}

// cleanupTempDir removes a suite tempdir, best effort
func cleanupTempDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		By(fmt.Sprintf("Warning: failed to cleanup temp dir %s: %v", dir, err))
	}
}
