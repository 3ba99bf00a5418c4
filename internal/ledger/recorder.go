package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// Recorder appends rows to inventory_history and product_history.
//
// Callers pass the transaction the change belongs to; the recorder never
// opens its own.
type Recorder struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewRecorder creates a Recorder that stamps rows with now().
func NewRecorder(now func() time.Time, logger *slog.Logger) *Recorder {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{now: now, logger: logger}
}

// RecordInventoryChange appends one inventory_history row. A failure here must
// abort the enclosing transaction.
func (r *Recorder) RecordInventoryChange(ctx context.Context, ex store.Execer, batchID int64, delta int, reason Reason, note string) error {
	if !reason.Valid() {
		return store.Validation("unknown change reason %q", reason)
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO inventory_history (batch_id, change, reason, note, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		batchID, delta, string(reason), nullString(note), store.Timestamp(r.now()))
	if err != nil {
		return store.Storage("record inventory change", err)
	}
	return nil
}

// RecordProductChange appends one product_history row.
//
// Product history is advisory: the error is logged and returned, and callers
// are expected to carry on with the surrounding upsert.
func (r *Recorder) RecordProductChange(ctx context.Context, ex store.Execer, productID int64, field, oldValue, newValue, note string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO product_history (product_id, field, old_value, new_value, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		productID, field, oldValue, newValue, nullString(note), store.Timestamp(r.now()))
	if err != nil {
		err = store.Storage("record product change", err)
		r.logger.Warn("product history write failed",
			"product_id", productID,
			"field", field,
			"error", err,
		)
		return err
	}
	return nil
}

// movements collects committed-to-be inventory changes so metrics are only
// reported once the transaction has committed.
type movements struct {
	reasons []string
	deltas  []int
}

func (m *movements) add(reason Reason, delta int) {
	m.reasons = append(m.reasons, string(reason))
	m.deltas = append(m.deltas, delta)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// formatValue renders a product field value for product_history. Absent
// values render as "null".
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case *string:
		if x == nil {
			return "null"
		}
		return *x
	case *int64:
		if x == nil {
			return "null"
		}
		return strconv.FormatInt(*x, 10)
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
