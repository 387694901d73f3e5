// Package testutil provides migrated SQLite databases and fixtures for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/nestmate/internal/database"
	"github.com/vedran77/nestmate/internal/logging"
)

// NewSQLite returns a migrated database under t.TempDir, closed on cleanup.
func NewSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "nestmate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.MigrateSQLite(context.Background(), db.DB, logging.Discard()))
	return db
}

// SeedUser inserts a profile row and returns its id.
func SeedUser(t *testing.T, db *sqlx.DB, displayName, role string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO users (id, display_name, role) VALUES (?, ?, ?)`, id, displayName, role)
	require.NoError(t, err)
	return id
}
