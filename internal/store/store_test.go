package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := open(context.Background(), path, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		db, err := open(ctx, path, DefaultConfig())
		require.NoError(t, err, "open iteration %d", i)
		db.Close()
	}

	db, err := open(ctx, path, DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	tables := []string{
		"inventory_category", "inventory_unit", "products", "inventory_batches",
		"sales", "sale_items", "inventory_history", "product_history", "settings",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}

	// Seeds are not duplicated by repeated opens.
	var units int
	require.NoError(t, db.Get(&units, "SELECT COUNT(*) FROM inventory_unit"))
	assert.Equal(t, 6, units)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := open(context.Background(), "/nonexistent/dir/test.db", DefaultConfig())
	assert.Error(t, err)
}

func TestSchemaVersion(t *testing.T) {
	_, db := createTestManager(t)

	version, err := SchemaVersion(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	m, _ := createTestManager(t)
	assert.NoError(t, m.verifyPragma("journal_mode", "wal"))
}

func TestPragma_Synchronous(t *testing.T) {
	m, _ := createTestManager(t)
	// NORMAL = 1
	assert.NoError(t, m.verifyPragma("synchronous", "1"))
}

func TestPragma_BusyTimeout(t *testing.T) {
	m, _ := createTestManager(t)
	assert.NoError(t, m.verifyPragma("busy_timeout", "5000"))
}

func TestPragma_ForeignKeys(t *testing.T) {
	m, _ := createTestManager(t)
	// ON = 1
	assert.NoError(t, m.verifyPragma("foreign_keys", "1"))
}

// Schema tests

func TestSchema_InventoryBatchesTable(t *testing.T) {
	_, db := createTestManager(t)

	columns := getTableColumns(t, db, "inventory_batches")
	expected := []string{
		"id", "product_id", "batch_number", "cost_price", "quantity",
		"expiration_date", "date_added", "is_deleted", "deleted_at",
	}
	for _, col := range expected {
		assert.Contains(t, columns, col)
	}

	indexes := getTableIndexes(t, db, "inventory_batches")
	assert.Contains(t, indexes, "idx_inventory_batches_expiration")
}

func TestSchema_HistoryTables(t *testing.T) {
	_, db := createTestManager(t)

	assert.ElementsMatch(t,
		[]string{"id", "batch_id", "change", "reason", "note", "created_at"},
		getTableColumns(t, db, "inventory_history"))
	assert.ElementsMatch(t,
		[]string{"id", "product_id", "field", "old_value", "new_value", "note", "created_at"},
		getTableColumns(t, db, "product_history"))
}

func TestSchema_QuantityCannotGoNegative(t *testing.T) {
	_, db := createTestManager(t)

	_, err := db.Exec(`INSERT INTO products (name, selling_price) VALUES ('Soap', 28)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO inventory_batches (product_id, cost_price, quantity) VALUES (1, 20, 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE inventory_batches SET quantity = quantity - 2 WHERE id = 1`)
	assert.Error(t, err, "CHECK constraint should reject negative quantity")
}

func TestSchema_ReasonIsClosedSet(t *testing.T) {
	_, db := createTestManager(t)

	_, err := db.Exec(`INSERT INTO products (name, selling_price) VALUES ('Soap', 28)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO inventory_batches (product_id, cost_price, quantity) VALUES (1, 20, 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO inventory_history (batch_id, change, reason) VALUES (1, 1, 'gift')`)
	assert.Error(t, err)
}

func TestSchema_DefaultSettingsSeeded(t *testing.T) {
	_, db := createTestManager(t)

	var value, valueType string
	err := db.QueryRow(`SELECT value, value_type FROM settings WHERE key = 'page_size_options'`).Scan(&value, &valueType)
	require.NoError(t, err)
	assert.Equal(t, "json", valueType)
	assert.Equal(t, "[5,10,20,50,100]", value)
}
