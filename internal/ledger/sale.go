package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// changeTolerance is the largest accepted gap between the stated change and
// cash - total, after rounding both to cents.
var changeTolerance = decimal.New(1, -2)

// ValidateSale checks a sale payload before any database work.
func ValidateSale(items []SaleItem, cash, total, change decimal.Decimal) error {
	if len(items) == 0 {
		return store.Validation("sale has no items")
	}
	seen := make(map[int64]int, len(items))
	for i, it := range items {
		if it.BatchID <= 0 {
			return store.Validation("item %d: batch id must be positive, got %d", i+1, it.BatchID)
		}
		if prev, dup := seen[it.BatchID]; dup {
			return store.Validation("item %d: batch %d already listed as item %d", i+1, it.BatchID, prev)
		}
		seen[it.BatchID] = i + 1
		if it.Quantity <= 0 {
			return store.Validation("item %d: quantity must be positive, got %d", i+1, it.Quantity)
		}
		if it.PriceAtSale.IsNegative() {
			return store.Validation("item %d: price must not be negative, got %s", i+1, it.PriceAtSale)
		}
	}
	if cash.IsNegative() {
		return store.Validation("cash received must not be negative, got %s", cash)
	}
	if total.IsNegative() {
		return store.Validation("total must not be negative, got %s", total)
	}
	if cash.LessThan(total) {
		return store.Validation("cash received %s is less than total %s", cash, total)
	}
	expected := cash.Sub(total).Round(2)
	if expected.Sub(change.Round(2)).Abs().GreaterThan(changeTolerance) {
		return store.Validation("change %s does not match cash - total = %s", change, expected)
	}
	return nil
}

// CreateSale records a sale, its items and the matching stock decrements in
// one transaction. Nothing is written unless every item has enough stock.
func (s *Service) CreateSale(ctx context.Context, items []SaleItem, cash, total, change decimal.Decimal) (int64, error) {
	const op = "create_sale"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return 0, err
	}
	if err := ValidateSale(items, cash, total, change); err != nil {
		return 0, s.fail(ctx, log, op, err)
	}

	var (
		saleID int64
		mv     movements
	)
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO sales (total, cash_received, change, created_at)
			VALUES (?, ?, ?, ?)`,
			total, cash, change, store.Timestamp(s.now()))
		if err != nil {
			return store.Storage("insert sale", err)
		}
		if saleID, err = store.LastInsertID(res, "sale"); err != nil {
			return err
		}

		note := fmt.Sprintf("Sold in sale #%d", saleID)
		for _, it := range items {
			b, err := activeBatch(ctx, tx, it.BatchID)
			if err != nil {
				return err
			}
			if b.Quantity < it.Quantity {
				return store.InsufficientStock(it.BatchID, b.Quantity, it.Quantity)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sale_items (sale_id, batch_id, quantity, price_at_sale)
				VALUES (?, ?, ?, ?)`,
				saleID, it.BatchID, it.Quantity, it.PriceAtSale); err != nil {
				return store.Storage("insert sale item", err)
			}
			mv.add(ReasonSale, -it.Quantity)
			if err := s.rec.RecordInventoryChange(ctx, tx, it.BatchID, -it.Quantity, ReasonSale, note); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE inventory_batches SET quantity = quantity - ? WHERE id = ?`, it.Quantity, it.BatchID); err != nil {
				return store.Storage("decrement batch", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(ctx, log, op, err)
	}

	s.committed(&mv)
	s.metrics.ObserveSale(len(items))
	log.Info("sale created", "sale_id", saleID, "items", len(items), "total", total.String())
	return saleID, nil
}

// GetSale returns a sale with its items.
func (s *Service) GetSale(ctx context.Context, saleID int64) (Sale, error) {
	const op = "get_sale"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return Sale{}, err
	}
	var sale Sale
	err = db.GetContext(ctx, &sale, `
		SELECT id, total, cash_received, change, created_at
		FROM sales WHERE id = ?`, saleID)
	if errors.Is(err, sql.ErrNoRows) {
		return Sale{}, s.fail(ctx, log, op, store.NotFound("sale", saleID))
	}
	if err != nil {
		return Sale{}, s.fail(ctx, log, op, store.Storage("get sale", err))
	}
	sale.Items = []SaleLine{}
	if err := db.SelectContext(ctx, &sale.Items, `
		SELECT id, sale_id, batch_id, quantity, price_at_sale
		FROM sale_items WHERE sale_id = ? ORDER BY id`, saleID); err != nil {
		return Sale{}, s.fail(ctx, log, op, store.Storage("get sale items", err))
	}
	return sale, nil
}
