package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// OpenManager opens a migrated database in a per-test temp directory and
// closes it when the test ends.
func OpenManager(t *testing.T) (*store.Manager, *sqlx.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pos.db")
	m := store.NewManager(path, store.WithConfig(store.Config{RetryDelay: time.Millisecond}))
	db, err := m.Acquire(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, db
}

// CountRows returns the number of rows in each named table.
func CountRows(t *testing.T, db *sqlx.DB, tables ...string) map[string]int {
	t.Helper()

	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
		counts[table] = n
	}
	return counts
}
