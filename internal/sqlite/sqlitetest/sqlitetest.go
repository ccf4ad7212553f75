// Package sqlitetest spins up migrated sqlite databases for tests.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stockroom/internal/migrations"
	"github.com/jdholdren/stockroom/internal/sqlite"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

// NewDB opens a fresh, migrated database in the test's temp dir.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "stockroom.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close() })

	require.NoError(t, migrations.Run(dbx))
	return dbx
}

func NewRepo(t *testing.T) sqlite.Repo {
	t.Helper()
	return sqlite.New(NewDB(t))
}

// SeedAdmin inserts an admin user to own imported products.
func SeedAdmin(t *testing.T, repo sqlite.Repo) stockroom.User {
	t.Helper()

	usr, err := repo.EnsureUser(context.Background(), stockroom.User{
		Email: "admin@stockroom.test",
		Name:  "Admin",
		Role:  stockroom.RoleAdmin,
	})
	require.NoError(t, err)
	return usr
}
