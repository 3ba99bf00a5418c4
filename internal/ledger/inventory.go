package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// ExpiryFilter narrows an inventory listing by expiration status.
type ExpiryFilter string

const (
	ExpiryAny      ExpiryFilter = ""
	ExpiryExpired  ExpiryFilter = "expired"
	ExpiryExpiring ExpiryFilter = "expiring"
	ExpiryValid    ExpiryFilter = "valid"
)

// ParseExpiryFilter converts s to an ExpiryFilter. "" and "all" mean no filter.
func ParseExpiryFilter(s string) (ExpiryFilter, error) {
	switch f := ExpiryFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "all":
		return ExpiryAny, nil
	case ExpiryAny, ExpiryExpired, ExpiryExpiring, ExpiryValid:
		return f, nil
	}
	return "", store.Validation("unknown expiry filter %q: want expired, expiring or valid", s)
}

// InventoryQuery filters and pages the active batches of every product.
// Limit 0 returns every matching row.
type InventoryQuery struct {
	// Search matches product name, barcode or batch number as a substring.
	Search string
	// Category is an exact category name. "" and "all" mean no filter.
	Category string
	Expiry   ExpiryFilter
	Limit    int
	Offset   int
}

// InventoryItem is an active batch joined with its product, unit and category.
type InventoryItem struct {
	ID             int64           `db:"id" json:"id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	ProductName    string          `db:"product_name" json:"product_name"`
	Barcode        *string         `db:"barcode" json:"barcode"`
	BatchNumber    *string         `db:"batch_number" json:"batch_number"`
	Quantity       int             `db:"quantity" json:"quantity"`
	CostPrice      decimal.Decimal `db:"cost_price" json:"cost_price"`
	SellingPrice   decimal.Decimal `db:"selling_price" json:"selling_price"`
	ExpirationDate *string         `db:"expiration_date" json:"expiration_date"`
	DateAdded      string          `db:"date_added" json:"date_added"`
	UnitName       *string         `db:"unit_name" json:"unit_name"`
	CategoryName   *string         `db:"category_name" json:"category_name"`
}

// InventoryPage is one page of inventory items.
type InventoryPage struct {
	Items  []InventoryItem `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

const inventorySelect = `
	SELECT ib.id, ib.product_id, p.name AS product_name, p.barcode, ib.batch_number,
		ib.quantity, ib.cost_price, p.selling_price, ib.expiration_date, ib.date_added,
		u.name AS unit_name, c.name AS category_name
	FROM inventory_batches ib
	JOIN products p ON p.id = ib.product_id
	LEFT JOIN inventory_unit u ON u.id = p.unit_id
	LEFT JOIN inventory_category c ON c.id = p.category_id`

const inventoryCount = `
	SELECT COUNT(*)
	FROM inventory_batches ib
	JOIN products p ON p.id = ib.product_id
	LEFT JOIN inventory_category c ON c.id = p.category_id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where builds the filter clause. Expiry bounds are calendar dates relative to today.
func (q InventoryQuery) where(today string, soon string) (string, []any, error) {
	conds := []string{"ib.is_deleted = 0"}
	var args []any

	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		conds = append(conds, `(p.name LIKE ? ESCAPE '\' OR p.barcode LIKE ? ESCAPE '\' OR ib.batch_number LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if category := strings.TrimSpace(q.Category); category != "" && !strings.EqualFold(category, "all") {
		conds = append(conds, "c.name = ?")
		args = append(args, category)
	}

	switch q.Expiry {
	case ExpiryAny:
	case ExpiryExpired:
		conds = append(conds, "ib.expiration_date < ?")
		args = append(args, today)
	case ExpiryExpiring:
		conds = append(conds, "ib.expiration_date BETWEEN ? AND ?")
		args = append(args, today, soon)
	case ExpiryValid:
		conds = append(conds, "(ib.expiration_date IS NULL OR ib.expiration_date >= ?)")
		args = append(args, today)
	default:
		return "", nil, store.Validation("unknown expiry filter %q", q.Expiry)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// ListInventory returns one page of active batches across all products,
// earliest expiry first, plus the total number of matching batches.
// Batches without an expiration date sort last.
func (s *Service) ListInventory(ctx context.Context, q InventoryQuery) (InventoryPage, error) {
	const op = "list_inventory"
	db, log, err := s.begin(ctx, op)
	if err != nil {
		return InventoryPage{}, err
	}
	if q.Limit < 0 {
		return InventoryPage{}, s.fail(ctx, log, op, store.Validation("page size must not be negative, got %d", q.Limit))
	}
	if q.Offset < 0 {
		return InventoryPage{}, s.fail(ctx, log, op, store.Validation("offset must not be negative, got %d", q.Offset))
	}

	now := s.now().UTC()
	today := now.Format(store.DateLayout)
	soon := now.Add(ExpiringSoonWindow).Format(store.DateLayout)
	where, args, err := q.where(today, soon)
	if err != nil {
		return InventoryPage{}, s.fail(ctx, log, op, err)
	}

	page := InventoryPage{Items: []InventoryItem{}, Limit: q.Limit, Offset: q.Offset}
	if err := db.GetContext(ctx, &page.Total, inventoryCount+where, args...); err != nil {
		return InventoryPage{}, s.fail(ctx, log, op, store.Storage("count inventory", err))
	}

	query := inventorySelect + where +
		" ORDER BY ib.expiration_date IS NULL, ib.expiration_date, p.name, ib.id"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}
	if err := db.SelectContext(ctx, &page.Items, query, args...); err != nil {
		return InventoryPage{}, s.fail(ctx, log, op, store.Storage("list inventory", err))
	}
	if page.Limit == 0 {
		page.Limit = page.Total
	}
	return page, nil
}
