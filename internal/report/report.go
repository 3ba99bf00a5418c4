// Package report renders ledger data as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Podjisin/saresari-pos/internal/ledger"
)

// Sheet names of the history workbook.
const (
	HistorySheet = "History"
	SummarySheet = "Summary"
)

var historyHeader = []any{"ID", "Date", "Product", "Batch", "Change", "Reason", "Note"}

// WriteHistoryWorkbook writes records as an .xlsx workbook to w. When stats
// is non-nil a Summary sheet with the totals is added.
func WriteHistoryWorkbook(w io.Writer, records []ledger.HistoryRecord, stats *ledger.HistoryStats) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), HistorySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(HistorySheet, "A1", &historyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.ID, r.CreatedAt, r.ProductName, deref(r.BatchNumber), r.Change, string(r.Reason), deref(r.Note)}
		if err := f.SetSheetRow(HistorySheet, cell, &row); err != nil {
			return fmt.Errorf("write history row %d: %w", r.ID, err)
		}
	}
	if err := f.SetColWidth(HistorySheet, "B", "C", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(HistorySheet, "G", "G", 40); err != nil {
		return err
	}

	if stats != nil {
		if _, err := f.NewSheet(SummarySheet); err != nil {
			return fmt.Errorf("add summary sheet: %w", err)
		}
		summary := [][]any{
			{"Total added", stats.TotalAdded},
			{"Total removed", stats.TotalRemoved},
			{"Most common reason", string(stats.MostCommonReason)},
			{"Rows exported", len(records)},
		}
		for i, row := range summary {
			if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
