package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
)

// createTestManager opens a fresh database in a temp dir.
func createTestManager(t *testing.T) (*Manager, *sqlx.DB) {
	t.Helper()
	m := NewManager(filepath.Join(t.TempDir(), "test.db"))
	db, err := m.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, db
}

func getTableColumns(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sqlx.DB, table string) []string {
	t.Helper()

	var indexes []string
	err := db.Select(&indexes, "SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	return indexes
}

// verifyPragma checks that a pragma is set to the expected value.
func (m *Manager) verifyPragma(name, expected string) error {
	db, err := m.DB()
	if err != nil {
		return err
	}
	var value string
	if err := db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
