package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// seedHistory writes, in order:
//
//	#1 batch A initial_stock +10   2025-01-15 09:00:03
//	#2 batch B initial_stock +4    2025-01-15 09:00:05
//	#3 batch A sale -3
//	#4 batch B adjustment -1
//	#5 batch A restock +5
func seedHistory(t *testing.T) (*Service, int64, int64, int64) {
	t.Helper()
	svc, _ := newTestService(t)
	ctx := context.Background()

	p1 := mustProduct(t, svc, "Alaska Evap", "")
	p2 := mustProduct(t, svc, "Marca Leon", "")
	a := mustBatch(t, svc, p1, 10)
	b := mustBatch(t, svc, p2, 4)

	_, err := svc.CreateSale(ctx, []SaleItem{{BatchID: a, Quantity: 3, PriceAtSale: dec("30")}},
		dec("100"), dec("90"), dec("10"))
	require.NoError(t, err)
	_, err = svc.SetBatchQuantity(ctx, b, 3, ReasonAdjustment, "recount")
	require.NoError(t, err)
	_, err = svc.SetBatchQuantity(ctx, a, 12, ReasonRestock, "")
	require.NoError(t, err)
	return svc, p1, a, b
}

func recordChanges(records []HistoryRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Change
	}
	return out
}

func TestListHistory_DefaultsToNewestFirst(t *testing.T) {
	svc, _, _, _ := seedHistory(t)

	page, err := svc.ListHistory(context.Background(), HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 5, page.Limit)
	assert.Equal(t, []int{5, -1, -3, 4, 10}, recordChanges(page.Records))
	assert.Equal(t, "Alaska Evap", page.Records[0].ProductName)
}

func TestListHistory_Filters(t *testing.T) {
	svc, p1, a, b := seedHistory(t)
	ctx := context.Background()
	asc := false

	tests := []struct {
		name  string
		query HistoryQuery
		want  []int
		total int
	}{
		{"by batch", HistoryQuery{BatchID: b, Descending: &asc}, []int{4, -1}, 2},
		{"by product", HistoryQuery{ProductID: p1, Descending: &asc}, []int{10, -3, 5}, 3},
		{"by reason", HistoryQuery{Reason: ReasonSale}, []int{-3}, 1},
		{"by batch and reason", HistoryQuery{BatchID: a, Reason: ReasonAdjustment}, []int{}, 0},
		{"order by change", HistoryQuery{OrderBy: OrderChange, Descending: &asc}, []int{-3, -1, 4, 5, 10}, 5},
		{"paged", HistoryQuery{Limit: 2, Offset: 1}, []int{-1, -3}, 5},
		{"offset only", HistoryQuery{Offset: 3}, []int{4, 10}, 5},
		{"date to includes whole day", HistoryQuery{DateTo: "2025-01-15"}, []int{5, -1, -3, 4, 10}, 5},
		{"date before any rows", HistoryQuery{DateTo: "2025-01-14"}, []int{}, 0},
		{"timestamp range", HistoryQuery{DateFrom: "2025-01-15 09:00:03", DateTo: "2025-01-15 09:00:05"}, []int{4, 10}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListHistory(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recordChanges(page.Records))
			assert.Equal(t, tt.total, page.Total)
		})
	}
}

func TestListHistory_RejectsBadQueries(t *testing.T) {
	svc, _, _, _ := seedHistory(t)
	ctx := context.Background()

	for name, q := range map[string]HistoryQuery{
		"negative limit":  {Limit: -1},
		"negative offset": {Offset: -5},
		"order column":    {OrderBy: HistoryOrder("note; DROP TABLE products")},
		"reason":          {Reason: Reason("theft")},
		"date":            {DateFrom: "15/01/2025"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ListHistory(ctx, q)
			require.Error(t, err)
			assert.True(t, store.IsValidation(err), "got %v", err)
		})
	}
}

func TestHistoryStats(t *testing.T) {
	svc, p1, _, _ := seedHistory(t)
	ctx := context.Background()

	stats, err := svc.HistoryStats(ctx, HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 19, stats.TotalAdded)
	assert.Equal(t, 4, stats.TotalRemoved)
	assert.Equal(t, ReasonInitialStock, stats.MostCommonReason)
	assert.Equal(t, []int{5, -1, -3, 4, 10}, recordChanges(stats.RecentActivity))

	// Totals cover every matching row, not just one page.
	stats, err = svc.HistoryStats(ctx, HistoryQuery{ProductID: p1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 15, stats.TotalAdded)
	assert.Equal(t, 3, stats.TotalRemoved)
	assert.Len(t, stats.RecentActivity, 3)

	stats, err = svc.HistoryStats(ctx, HistoryQuery{Reason: ReasonDamaged})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAdded)
	assert.Equal(t, Reason(""), stats.MostCommonReason)
	assert.Empty(t, stats.RecentActivity)
}

func TestChangeReasons(t *testing.T) {
	reasons := ChangeReasons()
	assert.Len(t, reasons, 12)
	for _, r := range reasons {
		assert.True(t, r.Valid())
		parsed, err := ParseReason(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, parsed)
	}
	_, err := ParseReason("refund")
	assert.True(t, store.IsValidation(err))
}
