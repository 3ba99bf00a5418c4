package ledger

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Podjisin/saresari-pos/internal/testutil"
)

var ledgerTables = []string{
	"products", "inventory_batches", "inventory_history",
	"product_history", "sales", "sale_items",
}

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	conns, db := testutil.OpenManager(t)
	svc := New(conns,
		WithClock(testutil.NewStepClock().Now),
		WithOpIDs(testutil.NewSequenceOpIDs("")),
	)
	return svc, db
}

func strPtr(s string) *string { return &s }

func idPtr(id int64) *int64 { return &id }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decFromInt(n int) decimal.Decimal { return decimal.NewFromInt(int64(n)) }

func mustProduct(t *testing.T, svc *Service, name, barcode string) int64 {
	t.Helper()
	in := ProductInput{Name: name, SellingPrice: dec("25")}
	if barcode != "" {
		in.Barcode = strPtr(barcode)
	}
	res, err := svc.UpsertProduct(context.Background(), in)
	require.NoError(t, err)
	return res.ID
}

func mustBatch(t *testing.T, svc *Service, productID int64, qty int) int64 {
	t.Helper()
	id, err := svc.AddBatch(context.Background(), BatchInput{
		ProductID: productID,
		Quantity:  qty,
		CostPrice: dec("12.50"),
	})
	require.NoError(t, err)
	return id
}

func historyChanges(t *testing.T, db *sqlx.DB, batchID int64) []int {
	t.Helper()
	var changes []int
	require.NoError(t, db.Select(&changes,
		`SELECT change FROM inventory_history WHERE batch_id = ? ORDER BY id`, batchID))
	return changes
}

func requireBalanced(t *testing.T, svc *Service) {
	t.Helper()
	off, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, off, "batches out of balance with history")
}

type batchSnapshot struct {
	ID       int64 `db:"id"`
	Quantity int   `db:"quantity"`
}

func snapshotQuantities(t *testing.T, db *sqlx.DB) []batchSnapshot {
	t.Helper()
	var rows []batchSnapshot
	require.NoError(t, db.Select(&rows, `SELECT id, quantity FROM inventory_batches ORDER BY id`))
	return rows
}
