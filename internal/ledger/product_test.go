package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Podjisin/saresari-pos/internal/store"
	"github.com/Podjisin/saresari-pos/internal/testutil"
)

func TestUpsertProduct_CreatesThenUpdates(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.UpsertProduct(ctx, ProductInput{
		Name:         "  Lucky Me Pancit Canton ",
		Barcode:      strPtr("4807770270017"),
		SellingPrice: dec("15"),
		UnitID:       idPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, created.Action)

	updated, err := svc.UpsertProduct(ctx, ProductInput{
		Name:         "Lucky Me Pancit Canton",
		Barcode:      strPtr("4807770270017"),
		SellingPrice: dec("16.50"),
		UnitID:       idPtr(2),
		CategoryID:   idPtr(4),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, ActionUpdated, updated.Action)
	assert.Equal(t, []string{FieldSellingPrice, FieldCategoryID}, updated.Changes.Fields())

	p, err := svc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lucky Me Pancit Canton", p.Name)
	assert.True(t, dec("16.5").Equal(p.SellingPrice))
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, int64(4), *p.CategoryID)
	assert.NotEqual(t, p.CreatedAt, p.UpdatedAt)

	rows, err := svc.ProductHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Newest first: the combined row follows the per-field rows.
	assert.Equal(t, FieldMultiple, rows[0].Field)
	require.NotNil(t, rows[0].Note)
	assert.Equal(t, "Selling price changed from 15 to 16.5; Category changed from null to 4", *rows[0].Note)
	assert.Equal(t, FieldCategoryID, rows[1].Field)
	assert.Equal(t, FieldSellingPrice, rows[2].Field)
	require.NotNil(t, rows[2].OldValue)
	assert.Equal(t, "15", *rows[2].OldValue)

	assert.Equal(t, 1, testutil.CountRows(t, db, "products")["products"])
}

func TestUpsertProduct_UnchangedRecordsNothing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	in := ProductInput{Name: "Chippy", Barcode: strPtr("123"), SellingPrice: dec("10")}

	_, err := svc.UpsertProduct(ctx, in)
	require.NoError(t, err)
	res, err := svc.UpsertProduct(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.True(t, res.Changes.Empty())
	assert.Zero(t, testutil.CountRows(t, db, "product_history")["product_history"])
}

func TestUpsertProduct_WithoutBarcodeAlwaysInserts(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for _, barcode := range []*string{nil, strPtr(""), strPtr("   ")} {
		res, err := svc.UpsertProduct(ctx, ProductInput{Name: "Loose Candy", Barcode: barcode, SellingPrice: dec("1")})
		require.NoError(t, err)
		assert.Equal(t, ActionCreated, res.Action)
	}

	assert.Equal(t, 3, testutil.CountRows(t, db, "products")["products"])
	var withBarcode int
	require.NoError(t, db.Get(&withBarcode, `SELECT COUNT(*) FROM products WHERE barcode IS NOT NULL`))
	assert.Zero(t, withBarcode)
}

func TestUpsertProduct_Errors(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    ProductInput
		check func(error) bool
	}{
		{"empty name", ProductInput{Name: "  ", SellingPrice: dec("1")}, store.IsValidation},
		{"negative price", ProductInput{Name: "X", SellingPrice: dec("-1")}, store.IsValidation},
		{"unknown unit", ProductInput{Name: "X", SellingPrice: dec("1"), UnitID: idPtr(99)}, store.IsNotFound},
		{"unknown category", ProductInput{Name: "X", SellingPrice: dec("1"), CategoryID: idPtr(99)}, store.IsNotFound},
		{"zero unit id", ProductInput{Name: "X", SellingPrice: dec("1"), UnitID: idPtr(0)}, store.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertProduct(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
	assert.Zero(t, testutil.CountRows(t, db, "products")["products"])
}

func TestUpsertProduct_NormalizesName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.UpsertProduct(ctx, ProductInput{Name: "Cafe\u0301 Puro", SellingPrice: dec("8")})
	require.NoError(t, err)

	p, err := svc.GetProduct(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9 Puro", p.Name)
}

func TestUpsertProduct_ProductHistoryIsAdvisory(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	id := mustProduct(t, svc, "Datu Puti", "480001")

	_, err := db.Exec(`DROP TABLE product_history`)
	require.NoError(t, err)

	res, err := svc.UpsertProduct(ctx, ProductInput{Name: "Datu Puti Vinegar", Barcode: strPtr("480001"), SellingPrice: dec("25")})
	require.NoError(t, err)
	assert.Equal(t, id, res.ID)

	p, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Datu Puti Vinegar", p.Name)
}

func TestFindProductByBarcode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := mustProduct(t, svc, "Silver Swan", "4800047")

	p, err := svc.FindProductByBarcode(ctx, " 4800047 ")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	_, err = svc.FindProductByBarcode(ctx, "nope")
	assert.True(t, store.IsNotFound(err))

	_, err = svc.FindProductByBarcode(ctx, "")
	assert.True(t, store.IsValidation(err))

	_, err = svc.GetProduct(ctx, 999)
	assert.True(t, store.IsNotFound(err))
}
