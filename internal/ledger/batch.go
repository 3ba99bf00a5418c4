package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Podjisin/saresari-pos/internal/store"
)

const batchColumns = `id, product_id, batch_number, cost_price, quantity,
	expiration_date, date_added, is_deleted, deleted_at`

// AddBatch creates a batch and records its opening stock as an initial_stock
// change of +Quantity.
func (s *Service) AddBatch(ctx context.Context, in BatchInput) (int64, error) {
	const op = "add_batch"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return 0, err
	}

	if err := requireID("product", in.ProductID); err != nil {
		return 0, s.fail(ctx, log, op, err)
	}
	if in.Quantity < 0 {
		return 0, s.fail(ctx, log, op, store.Validation("quantity must not be negative, got %d", in.Quantity))
	}
	if err := requireNonNegativeMoney("cost price", in.CostPrice); err != nil {
		return 0, s.fail(ctx, log, op, err)
	}
	expiration, err := normalizeDate("expiration date", in.ExpirationDate)
	if err != nil {
		return 0, s.fail(ctx, log, op, err)
	}
	batchNumber := normalizeText(in.BatchNumber)

	var (
		id int64
		mv movements
	)
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := productExists(ctx, tx, in.ProductID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO inventory_batches
				(product_id, batch_number, cost_price, quantity, expiration_date, date_added)
			VALUES (?, ?, ?, ?, ?, ?)`,
			in.ProductID, batchNumber, in.CostPrice, in.Quantity, expiration, store.Timestamp(s.now()))
		if err != nil {
			return store.Storage("insert batch", err)
		}
		if id, err = store.LastInsertID(res, "batch"); err != nil {
			return err
		}
		mv.add(ReasonInitialStock, in.Quantity)
		return s.rec.RecordInventoryChange(ctx, tx, id, in.Quantity, ReasonInitialStock, "Initial stock entry")
	})
	if err != nil {
		return 0, s.fail(ctx, log, op, err)
	}

	s.committed(&mv)
	log.Info("batch added", "batch_id", id, "product_id", in.ProductID, "quantity", in.Quantity)
	return id, nil
}

// SetBatchQuantity sets a batch quantity and records the delta under reason.
// Returns the recorded delta; a zero delta writes nothing.
func (s *Service) SetBatchQuantity(ctx context.Context, batchID int64, quantity int, reason Reason, note string) (int, error) {
	const op = "set_batch_quantity"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return 0, err
	}

	if err := requireID("batch", batchID); err != nil {
		return 0, s.fail(ctx, log, op, err)
	}
	if quantity < 0 {
		return 0, s.fail(ctx, log, op, store.Validation("quantity must not be negative, got %d", quantity))
	}
	if !reason.Valid() {
		return 0, s.fail(ctx, log, op, store.Validation("unknown change reason %q", reason))
	}

	var (
		delta int
		mv    movements
	)
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		b, err := activeBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		delta = quantity - b.Quantity
		if delta == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_batches SET quantity = ? WHERE id = ?`, quantity, batchID); err != nil {
			return store.Storage("update batch quantity", err)
		}
		mv.add(reason, delta)
		return s.rec.RecordInventoryChange(ctx, tx, batchID, delta, reason, note)
	})
	if err != nil {
		return 0, s.fail(ctx, log, op, err)
	}

	s.committed(&mv)
	log.Info("batch quantity set", "batch_id", batchID, "quantity", quantity, "delta", delta, "reason", string(reason))
	return delta, nil
}

// DeleteBatch soft-deletes a batch. Its remaining stock is written off with a
// delete change of -quantity, so the batch still reconciles at zero.
func (s *Service) DeleteBatch(ctx context.Context, batchID int64, note string) error {
	const op = "delete_batch"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	if err := requireID("batch", batchID); err != nil {
		return s.fail(ctx, log, op, err)
	}
	if note == "" {
		note = "Batch deleted"
	}

	var mv movements
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		b, err := activeBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		mv.add(ReasonDelete, -b.Quantity)
		if err := s.rec.RecordInventoryChange(ctx, tx, batchID, -b.Quantity, ReasonDelete, note); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory_batches
			SET is_deleted = 1, deleted_at = ?, quantity = 0
			WHERE id = ?`,
			store.Timestamp(s.now()), batchID); err != nil {
			return store.Storage("delete batch", err)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, log, op, err)
	}

	s.committed(&mv)
	log.Info("batch deleted", "batch_id", batchID)
	return nil
}

// EditBatch updates cost price, expiration date or batch number. Quantity is
// not editable here. Returns false without writing when nothing differs.
func (s *Service) EditBatch(ctx context.Context, batchID int64, upd BatchUpdate, note string) (bool, error) {
	const op = "edit_batch"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return false, err
	}
	if err := requireID("batch", batchID); err != nil {
		return false, s.fail(ctx, log, op, err)
	}
	if upd.CostPrice.Set {
		if err := requireNonNegativeMoney("cost price", upd.CostPrice.Value); err != nil {
			return false, s.fail(ctx, log, op, err)
		}
	}
	if upd.ExpirationDate.Set {
		if upd.ExpirationDate.Value, err = normalizeDate("expiration date", upd.ExpirationDate.Value); err != nil {
			return false, s.fail(ctx, log, op, err)
		}
	}
	if upd.BatchNumber.Set {
		upd.BatchNumber.Value = normalizeText(upd.BatchNumber.Value)
	}

	var (
		changed []string
		mv      movements
	)
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		b, err := activeBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}

		var (
			sets []string
			args []any
		)
		if upd.CostPrice.Set && !upd.CostPrice.Value.Equal(b.CostPrice) {
			sets = append(sets, "cost_price = ?")
			args = append(args, upd.CostPrice.Value)
			changed = append(changed, fmt.Sprintf("cost price %s -> %s", b.CostPrice, upd.CostPrice.Value))
		}
		if upd.ExpirationDate.Set && !equalStrPtr(upd.ExpirationDate.Value, b.ExpirationDate) {
			sets = append(sets, "expiration_date = ?")
			args = append(args, upd.ExpirationDate.Value)
			changed = append(changed, fmt.Sprintf("expiration date %s -> %s",
				formatValue(b.ExpirationDate), formatValue(upd.ExpirationDate.Value)))
		}
		if upd.BatchNumber.Set && !equalStrPtr(upd.BatchNumber.Value, b.BatchNumber) {
			sets = append(sets, "batch_number = ?")
			args = append(args, upd.BatchNumber.Value)
			changed = append(changed, fmt.Sprintf("batch number %s -> %s",
				formatValue(b.BatchNumber), formatValue(upd.BatchNumber.Value)))
		}
		if len(sets) == 0 {
			return nil
		}

		args = append(args, batchID)
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_batches SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return store.Storage("edit batch", err)
		}

		msg := note
		if msg == "" {
			msg = "Edited " + strings.Join(changed, "; ")
		}
		mv.add(ReasonEdit, 0)
		return s.rec.RecordInventoryChange(ctx, tx, batchID, 0, ReasonEdit, msg)
	})
	if err != nil {
		return false, s.fail(ctx, log, op, err)
	}
	if len(changed) == 0 {
		log.Debug("batch edit is a no-op", "batch_id", batchID)
		return false, nil
	}

	s.committed(&mv)
	log.Info("batch edited", "batch_id", batchID, "changes", len(changed))
	return true, nil
}

// TransferBatch moves qty units between two active batches of the same
// product, recording -qty on the source and +qty on the destination.
func (s *Service) TransferBatch(ctx context.Context, fromID, toID int64, qty int, note string) error {
	const op = "transfer_batch"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return err
	}
	if err := requireID("source batch", fromID); err != nil {
		return s.fail(ctx, log, op, err)
	}
	if err := requireID("destination batch", toID); err != nil {
		return s.fail(ctx, log, op, err)
	}
	if fromID == toID {
		return s.fail(ctx, log, op, store.Validation("cannot transfer batch %d to itself", fromID))
	}
	if qty <= 0 {
		return s.fail(ctx, log, op, store.Validation("transfer quantity must be positive, got %d", qty))
	}

	var mv movements
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(`SELECT `+batchColumns+`
			FROM inventory_batches
			WHERE is_deleted = 0 AND id IN (?)`, []int64{fromID, toID})
		if err != nil {
			return store.Storage("build transfer query", err)
		}
		var found []Batch
		if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
			return store.Storage("load transfer batches", err)
		}

		var from, to *Batch
		for i := range found {
			switch found[i].ID {
			case fromID:
				from = &found[i]
			case toID:
				to = &found[i]
			}
		}
		if from == nil {
			return store.NotFound("batch", fromID)
		}
		if to == nil {
			return store.NotFound("batch", toID)
		}
		if from.ProductID != to.ProductID {
			return store.Validation("batches %d and %d belong to different products", fromID, toID)
		}
		if from.Quantity < qty {
			return store.InsufficientStock(fromID, from.Quantity, qty)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_batches SET quantity = quantity - ? WHERE id = ?`, qty, fromID); err != nil {
			return store.Storage("debit source batch", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE inventory_batches SET quantity = quantity + ? WHERE id = ?`, qty, toID); err != nil {
			return store.Storage("credit destination batch", err)
		}

		outNote, inNote := note, note
		if note == "" {
			outNote = fmt.Sprintf("Transferred to batch #%d", toID)
			inNote = fmt.Sprintf("Transferred from batch #%d", fromID)
		}
		mv.add(ReasonTransfer, -qty)
		if err := s.rec.RecordInventoryChange(ctx, tx, fromID, -qty, ReasonTransfer, outNote); err != nil {
			return err
		}
		mv.add(ReasonTransfer, qty)
		return s.rec.RecordInventoryChange(ctx, tx, toID, qty, ReasonTransfer, inNote)
	})
	if err != nil {
		return s.fail(ctx, log, op, err)
	}

	s.committed(&mv)
	log.Info("stock transferred", "from_batch", fromID, "to_batch", toID, "quantity", qty)
	return nil
}

// GetBatch returns a batch by id, including soft-deleted ones.
func (s *Service) GetBatch(ctx context.Context, batchID int64) (Batch, error) {
	const op = "get_batch"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return Batch{}, err
	}
	var b Batch
	err = db.GetContext(ctx, &b, `SELECT `+batchColumns+` FROM inventory_batches WHERE id = ?`, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, s.fail(ctx, log, op, store.NotFound("batch", batchID))
	}
	if err != nil {
		return Batch{}, s.fail(ctx, log, op, store.Storage("get batch", err))
	}
	return b, nil
}

// ListBatches returns the active batches of a product, earliest expiry first.
// Batches without an expiration date sort last.
func (s *Service) ListBatches(ctx context.Context, productID int64) ([]Batch, error) {
	const op = "list_batches"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	batches := []Batch{}
	err = db.SelectContext(ctx, &batches, `
		SELECT `+batchColumns+`
		FROM inventory_batches
		WHERE product_id = ? AND is_deleted = 0
		ORDER BY expiration_date IS NULL, expiration_date, id`, productID)
	if err != nil {
		return nil, s.fail(ctx, log, op, store.Storage("list batches", err))
	}
	return batches, nil
}

// Reconcile compares a batch's stored quantity with the sum of its history.
func (s *Service) Reconcile(ctx context.Context, batchID int64) (Reconciliation, error) {
	const op = "reconcile"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return Reconciliation{}, err
	}
	var r Reconciliation
	err = db.GetContext(ctx, &r, `
		SELECT b.id AS batch_id,
			b.quantity AS quantity,
			COALESCE(SUM(h.change), 0) AS history_sum,
			COUNT(h.id) AS entries
		FROM inventory_batches b
		LEFT JOIN inventory_history h ON h.batch_id = b.id
		WHERE b.id = ?
		GROUP BY b.id`, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return Reconciliation{}, s.fail(ctx, log, op, store.NotFound("batch", batchID))
	}
	if err != nil {
		return Reconciliation{}, s.fail(ctx, log, op, store.Storage("reconcile batch", err))
	}
	return r, nil
}

// ReconcileAll returns every batch whose quantity disagrees with its history.
func (s *Service) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	const op = "reconcile_all"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	out := []Reconciliation{}
	err = db.SelectContext(ctx, &out, `
		SELECT b.id AS batch_id,
			b.quantity AS quantity,
			COALESCE(SUM(h.change), 0) AS history_sum,
			COUNT(h.id) AS entries
		FROM inventory_batches b
		LEFT JOIN inventory_history h ON h.batch_id = b.id
		GROUP BY b.id
		HAVING b.quantity != COALESCE(SUM(h.change), 0)
		ORDER BY b.id`)
	if err != nil {
		return nil, s.fail(ctx, log, op, store.Storage("reconcile batches", err))
	}
	return out, nil
}

// activeBatch reads a non-deleted batch inside tx.
func activeBatch(ctx context.Context, q store.Querier, batchID int64) (Batch, error) {
	var b Batch
	err := q.GetContext(ctx, &b, `
		SELECT `+batchColumns+`
		FROM inventory_batches
		WHERE id = ? AND is_deleted = 0`, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return Batch{}, store.NotFound("batch", batchID)
	}
	if err != nil {
		return Batch{}, store.Storage("load batch", err)
	}
	return b, nil
}

func productExists(ctx context.Context, q store.Querier, productID int64) error {
	var n int
	if err := q.GetContext(ctx, &n, `SELECT COUNT(*) FROM products WHERE id = ?`, productID); err != nil {
		return store.Storage("check product", err)
	}
	if n == 0 {
		return store.NotFound("product", productID)
	}
	return nil
}
