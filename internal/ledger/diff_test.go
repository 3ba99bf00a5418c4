package ledger

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffProduct_NoChanges(t *testing.T) {
	old := Product{Name: "Argentina Corned Beef", SellingPrice: dec("42"), UnitID: idPtr(4)}
	in := ProductInput{Name: "Argentina Corned Beef", SellingPrice: dec("42.00"), UnitID: idPtr(4)}

	cs := DiffProduct(old, in)
	assert.True(t, cs.Empty())
	assert.Equal(t, "", cs.Note())
}

func TestDiffProduct_IgnoresBarcode(t *testing.T) {
	old := Product{Name: "A", Barcode: strPtr("1"), SellingPrice: dec("1")}
	in := ProductInput{Name: "A", Barcode: strPtr("2"), SellingPrice: dec("1")}

	assert.True(t, DiffProduct(old, in).Empty())
}

func TestDiffProduct_Golden(t *testing.T) {
	old := Product{
		Name:         "Lucky Me Pancit Canton",
		SellingPrice: dec("15"),
		UnitID:       idPtr(2),
	}
	in := ProductInput{
		Name:         "Lucky Me Pancit Canton Original",
		SellingPrice: dec("16.5"),
		CategoryID:   idPtr(4),
	}

	cs := DiffProduct(old, in)
	require.Len(t, cs, 4)

	got, err := json.MarshalIndent(cs, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "product_diff_all_fields", got)
}
