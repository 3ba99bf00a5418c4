package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Podjisin/saresari-pos/internal/ledger"
)

func strPtr(s string) *string { return &s }

func TestWriteHistoryWorkbook(t *testing.T) {
	records := []ledger.HistoryRecord{
		{ID: 2, BatchID: 1, Change: -3, Reason: ledger.ReasonSale, Note: strPtr("Sold in sale #1"),
			CreatedAt: "2025-01-15 09:00:07", ProductName: "Alaska Evap", BatchNumber: strPtr("BATCH-AEX-20250115")},
		{ID: 1, BatchID: 1, Change: 10, Reason: ledger.ReasonInitialStock,
			CreatedAt: "2025-01-15 09:00:03", ProductName: "Alaska Evap"},
	}
	stats := &ledger.HistoryStats{TotalAdded: 10, TotalRemoved: 3, MostCommonReason: ledger.ReasonSale}

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryWorkbook(&buf, records, stats))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{HistorySheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(HistorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Date", "Product", "Batch", "Change", "Reason", "Note"}, rows[0])
	assert.Equal(t, []string{"2", "2025-01-15 09:00:07", "Alaska Evap", "BATCH-AEX-20250115", "-3", "sale", "Sold in sale #1"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 6)
	assert.Equal(t, []string{"1", "2025-01-15 09:00:03", "Alaska Evap", "", "10", "initial_stock"}, rows[2][:6])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Total added", "10"},
		{"Total removed", "3"},
		{"Most common reason", "sale"},
		{"Rows exported", "2"},
	}, summary)
}

func TestWriteHistoryWorkbook_NoStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryWorkbook(&buf, nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{HistorySheet}, f.GetSheetList())
	rows, err := f.GetRows(HistorySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
