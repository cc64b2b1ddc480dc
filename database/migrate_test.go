package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	connString, cleanupFunc := SetupTestDBContainer(t)
	t.Cleanup(cleanupFunc)

	m, err := NewFromConnectionString(connString)
	require.NoError(t, err)
	defer m.Close()

	// The ladder height is however many up migrations are embedded.
	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	steps := len(fnames)
	require.Positive(t, steps)

	// Walk the full ladder up, back down, and up again.
	err = m.Steps(steps)
	assert.NoError(t, err)

	err = m.Steps(-steps)
	assert.NoError(t, err)

	err = m.Steps(steps)
	assert.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(steps), version)
}
