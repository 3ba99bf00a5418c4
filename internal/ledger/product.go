package ledger

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/unicode/norm"

	"github.com/Podjisin/saresari-pos/internal/store"
)

const productColumns = `id, name, barcode, selling_price, unit_id, category_id, created_at, updated_at`

// UpsertProduct creates a product, or updates the product that already owns
// the barcode. A payload without a barcode always creates a new product.
//
// Every changed field gets its own product_history row followed by one
// combined row under the field name "multiple". Product history failures are
// logged and do not abort the upsert.
func (s *Service) UpsertProduct(ctx context.Context, in ProductInput) (UpsertResult, error) {
	const op = "upsert_product"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return UpsertResult{}, err
	}

	in.Name = norm.NFC.String(strings.TrimSpace(in.Name))
	in.Barcode = normalizeText(in.Barcode)
	if in.Name == "" {
		return UpsertResult{}, s.fail(ctx, log, op, store.Validation("product name is required"))
	}
	if err := requireNonNegativeMoney("selling price", in.SellingPrice); err != nil {
		return UpsertResult{}, s.fail(ctx, log, op, err)
	}

	var res UpsertResult
	err = store.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := lookupExists(ctx, tx, "inventory_unit", "unit", in.UnitID); err != nil {
			return err
		}
		if err := lookupExists(ctx, tx, "inventory_category", "category", in.CategoryID); err != nil {
			return err
		}

		now := store.Timestamp(s.now())
		if in.Barcode != nil {
			existing, found, err := productByBarcode(ctx, tx, *in.Barcode)
			if err != nil {
				return err
			}
			if found {
				res, err = s.updateProduct(ctx, tx, existing, in, now)
				return err
			}
		}

		r, err := tx.ExecContext(ctx, `
			INSERT INTO products (name, barcode, selling_price, unit_id, category_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			in.Name, in.Barcode, in.SellingPrice, in.UnitID, in.CategoryID, now, now)
		if err != nil {
			return store.Storage("insert product", err)
		}
		id, err := store.LastInsertID(r, "product")
		if err != nil {
			return err
		}
		res = UpsertResult{ID: id, Action: ActionCreated}
		return nil
	})
	if err != nil {
		return UpsertResult{}, s.fail(ctx, log, op, err)
	}

	log.Info("product upserted", "product_id", res.ID, "action", string(res.Action), "changed_fields", res.Changes.Fields())
	return res, nil
}

func (s *Service) updateProduct(ctx context.Context, tx *sqlx.Tx, existing Product, in ProductInput, now string) (UpsertResult, error) {
	changes := DiffProduct(existing, in)
	res := UpsertResult{ID: existing.ID, Action: ActionUpdated, Changes: changes}
	if changes.Empty() {
		return res, nil
	}

	for _, fc := range changes {
		_ = s.rec.RecordProductChange(ctx, tx, existing.ID, fc.Field, fc.Old, fc.New, fc.Note)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = ?, selling_price = ?, unit_id = ?, category_id = ?, updated_at = ?
		WHERE id = ?`,
		in.Name, in.SellingPrice, in.UnitID, in.CategoryID, now, existing.ID); err != nil {
		return UpsertResult{}, store.Storage("update product", err)
	}

	_ = s.rec.RecordProductChange(ctx, tx, existing.ID, FieldMultiple, "", "", changes.Note())
	return res, nil
}

// GetProduct returns a product by id.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	const op = "get_product"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return Product{}, err
	}
	var p Product
	err = db.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, s.fail(ctx, log, op, store.NotFound("product", id))
	}
	if err != nil {
		return Product{}, s.fail(ctx, log, op, store.Storage("get product", err))
	}
	return p, nil
}

// FindProductByBarcode returns the product owning barcode.
func (s *Service) FindProductByBarcode(ctx context.Context, barcode string) (Product, error) {
	const op = "find_product"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return Product{}, err
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, s.fail(ctx, log, op, store.Validation("barcode is required"))
	}
	p, found, err := productByBarcode(ctx, db, barcode)
	if err != nil {
		return Product{}, s.fail(ctx, log, op, err)
	}
	if !found {
		return Product{}, s.fail(ctx, log, op, store.NotFound("product with barcode", barcode))
	}
	return p, nil
}

// ProductHistory returns a product's change rows, newest first.
func (s *Service) ProductHistory(ctx context.Context, productID int64) ([]ProductHistoryRecord, error) {
	const op = "product_history"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return nil, err
	}
	rows := []ProductHistoryRecord{}
	err = db.SelectContext(ctx, &rows, `
		SELECT id, product_id, field, old_value, new_value, note, created_at
		FROM product_history
		WHERE product_id = ?
		ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, s.fail(ctx, log, op, store.Storage("product history", err))
	}
	return rows, nil
}

func productByBarcode(ctx context.Context, q store.Querier, barcode string) (Product, bool, error) {
	var p Product
	err := q.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE barcode = ?`, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, store.Storage("find product by barcode", err)
	}
	return p, true, nil
}

// lookupExists checks an optional reference into a lookup table.
func lookupExists(ctx context.Context, q store.Querier, table, entity string, id *int64) error {
	if id == nil {
		return nil
	}
	if *id <= 0 {
		return store.Validation("%s id must be positive, got %d", entity, *id)
	}
	var n int
	if err := q.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, *id); err != nil {
		return store.Storage("check "+entity, err)
	}
	if n == 0 {
		return store.NotFound(entity, *id)
	}
	return nil
}
