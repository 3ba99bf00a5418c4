package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// HistoryOrder is a sortable history column.
type HistoryOrder string

const (
	OrderCreatedAt HistoryOrder = "created_at"
	OrderChange    HistoryOrder = "change"
)

// RecentActivityLimit is the number of records HistoryStats returns.
const RecentActivityLimit = 5

// HistoryQuery filters and pages inventory history. Zero values mean
// "no filter"; Limit 0 returns every matching row.
type HistoryQuery struct {
	BatchID    int64
	ProductID  int64
	Reason     Reason
	DateFrom   string
	DateTo     string
	Limit      int
	Offset     int
	OrderBy    HistoryOrder
	Descending *bool
}

// HistoryPage is one page of history records.
type HistoryPage struct {
	Records []HistoryRecord `json:"records"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// HistoryStats summarises the records matching a query.
type HistoryStats struct {
	TotalAdded       int             `json:"total_added"`
	TotalRemoved     int             `json:"total_removed"`
	MostCommonReason Reason          `json:"most_common_reason,omitempty"`
	RecentActivity   []HistoryRecord `json:"recent_activity"`
}

const historySelect = `
	SELECT h.id, h.batch_id, h.change, h.reason, h.note, h.created_at,
		p.name AS product_name, b.batch_number
	FROM inventory_history h
	JOIN inventory_batches b ON b.id = h.batch_id
	JOIN products p ON p.id = b.product_id`

const historyCount = `
	SELECT COUNT(*)
	FROM inventory_history h
	JOIN inventory_batches b ON b.id = h.batch_id
	JOIN products p ON p.id = b.product_id`

// where builds the filter clause. Date-only upper bounds include the whole day.
func (q HistoryQuery) where() (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if q.BatchID != 0 {
		conds = append(conds, "h.batch_id = ?")
		args = append(args, q.BatchID)
	}
	if q.ProductID != 0 {
		conds = append(conds, "b.product_id = ?")
		args = append(args, q.ProductID)
	}
	if q.Reason != "" {
		if !q.Reason.Valid() {
			return "", nil, store.Validation("unknown change reason %q", q.Reason)
		}
		conds = append(conds, "h.reason = ?")
		args = append(args, string(q.Reason))
	}
	if q.DateFrom != "" {
		from, _, err := parseBound("date from", q.DateFrom)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, "h.created_at >= ?")
		args = append(args, store.Timestamp(from))
	}
	if q.DateTo != "" {
		to, dateOnly, err := parseBound("date to", q.DateTo)
		if err != nil {
			return "", nil, err
		}
		if dateOnly {
			conds = append(conds, "h.created_at < ?")
			args = append(args, store.Timestamp(to.AddDate(0, 0, 1)))
		} else {
			conds = append(conds, "h.created_at <= ?")
			args = append(args, store.Timestamp(to))
		}
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (q HistoryQuery) orderBy() (string, error) {
	col := q.OrderBy
	if col == "" {
		col = OrderCreatedAt
	}
	if col != OrderCreatedAt && col != OrderChange {
		return "", store.Validation("cannot order history by %q", col)
	}
	dir := "DESC"
	if q.Descending != nil && !*q.Descending {
		dir = "ASC"
	}
	return " ORDER BY h." + string(col) + " " + dir + ", h.id " + dir, nil
}

func parseBound(field, v string) (time.Time, bool, error) {
	if t, err := time.Parse(store.DateLayout, v); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(store.TimeLayout, v); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, store.Validation("%s must be YYYY-MM-DD or %q, got %q", field, store.TimeLayout, v)
}

// ListHistory returns one page of inventory history joined with product name
// and batch number, plus the total number of matching rows.
func (s *Service) ListHistory(ctx context.Context, q HistoryQuery) (HistoryPage, error) {
	const op = "list_history"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return HistoryPage{}, err
	}
	if q.Limit < 0 {
		return HistoryPage{}, s.fail(ctx, log, op, store.Validation("page size must not be negative, got %d", q.Limit))
	}
	if q.Offset < 0 {
		return HistoryPage{}, s.fail(ctx, log, op, store.Validation("offset must not be negative, got %d", q.Offset))
	}
	where, args, err := q.where()
	if err != nil {
		return HistoryPage{}, s.fail(ctx, log, op, err)
	}
	order, err := q.orderBy()
	if err != nil {
		return HistoryPage{}, s.fail(ctx, log, op, err)
	}

	page := HistoryPage{Records: []HistoryRecord{}, Limit: q.Limit, Offset: q.Offset}
	if err := db.GetContext(ctx, &page.Total, historyCount+where, args...); err != nil {
		return HistoryPage{}, s.fail(ctx, log, op, store.Storage("count history", err))
	}

	query := historySelect + where + order
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}
	if err := db.SelectContext(ctx, &page.Records, query, args...); err != nil {
		return HistoryPage{}, s.fail(ctx, log, op, store.Storage("list history", err))
	}
	if page.Limit == 0 {
		page.Limit = page.Total
	}
	return page, nil
}

// HistoryStats totals units added and removed across every record matching q and
// reports the most frequent reason. Limit and Offset are ignored except that
// RecentActivity holds the newest RecentActivityLimit records.
func (s *Service) HistoryStats(ctx context.Context, q HistoryQuery) (HistoryStats, error) {
	const op = "history_stats"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return HistoryStats{}, err
	}
	where, args, err := q.where()
	if err != nil {
		return HistoryStats{}, s.fail(ctx, log, op, err)
	}

	var totals struct {
		Added   int `db:"added"`
		Removed int `db:"removed"`
	}
	if err := db.GetContext(ctx, &totals, `
		SELECT COALESCE(SUM(CASE WHEN h.change > 0 THEN h.change ELSE 0 END), 0) AS added,
			COALESCE(SUM(CASE WHEN h.change < 0 THEN -h.change ELSE 0 END), 0) AS removed
		FROM inventory_history h
		JOIN inventory_batches b ON b.id = h.batch_id
		JOIN products p ON p.id = b.product_id`+where, args...); err != nil {
		return HistoryStats{}, s.fail(ctx, log, op, store.Storage("history totals", err))
	}

	var reasons []string
	if err := db.SelectContext(ctx, &reasons, `
		SELECT h.reason
		FROM inventory_history h
		JOIN inventory_batches b ON b.id = h.batch_id
		JOIN products p ON p.id = b.product_id`+where+`
		GROUP BY h.reason
		ORDER BY COUNT(*) DESC, h.reason
		LIMIT 1`, args...); err != nil {
		return HistoryStats{}, s.fail(ctx, log, op, store.Storage("history reasons", err))
	}

	stats := HistoryStats{
		TotalAdded:     totals.Added,
		TotalRemoved:   totals.Removed,
		RecentActivity: []HistoryRecord{},
	}
	if len(reasons) > 0 {
		stats.MostCommonReason = Reason(reasons[0])
	}

	recentArgs := append(append([]any{}, args...), RecentActivityLimit)
	if err := db.SelectContext(ctx, &stats.RecentActivity,
		historySelect+where+` ORDER BY h.created_at DESC, h.id DESC LIMIT ?`, recentArgs...); err != nil {
		return HistoryStats{}, s.fail(ctx, log, op, store.Storage("recent history", err))
	}
	return stats, nil
}
