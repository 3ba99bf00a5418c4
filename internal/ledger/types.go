package ledger

import "github.com/shopspring/decimal"

// Batch is a discrete lot of a product with its own quantity and cost.
type Batch struct {
	ID             int64           `db:"id" json:"id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	BatchNumber    *string         `db:"batch_number" json:"batch_number"`
	CostPrice      decimal.Decimal `db:"cost_price" json:"cost_price"`
	Quantity       int             `db:"quantity" json:"quantity"`
	ExpirationDate *string         `db:"expiration_date" json:"expiration_date"`
	DateAdded      string          `db:"date_added" json:"date_added"`
	IsDeleted      bool            `db:"is_deleted" json:"is_deleted"`
	DeletedAt      *string         `db:"deleted_at" json:"deleted_at,omitempty"`
}

// BatchInput describes a new batch.
type BatchInput struct {
	ProductID      int64
	Quantity       int
	CostPrice      decimal.Decimal
	ExpirationDate *string
	BatchNumber    *string
}

// Optional distinguishes "leave unchanged" from "set to the zero value".
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// BatchUpdate lists the editable batch fields. Unset fields are not compared.
type BatchUpdate struct {
	CostPrice      Optional[decimal.Decimal]
	ExpirationDate Optional[*string]
	BatchNumber    Optional[*string]
}

// Reconciliation compares a batch quantity with the sum of its history.
type Reconciliation struct {
	BatchID    int64 `db:"batch_id" json:"batch_id"`
	Quantity   int   `db:"quantity" json:"quantity"`
	HistorySum int   `db:"history_sum" json:"history_sum"`
	Entries    int   `db:"entries" json:"entries"`
}

// Balanced reports whether quantity equals the replayed history.
func (r Reconciliation) Balanced() bool {
	return r.Quantity == r.HistorySum
}

// Product is product master data.
type Product struct {
	ID           int64           `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Barcode      *string         `db:"barcode" json:"barcode"`
	SellingPrice decimal.Decimal `db:"selling_price" json:"selling_price"`
	UnitID       *int64          `db:"unit_id" json:"unit_id"`
	CategoryID   *int64          `db:"category_id" json:"category_id"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	UpdatedAt    string          `db:"updated_at" json:"updated_at"`
}

// ProductInput is the payload of UpsertProduct.
type ProductInput struct {
	Name         string
	Barcode      *string
	SellingPrice decimal.Decimal
	UnitID       *int64
	CategoryID   *int64
}

// UpsertAction reports what UpsertProduct did.
type UpsertAction string

const (
	ActionCreated UpsertAction = "created"
	ActionUpdated UpsertAction = "updated"
)

// UpsertResult is returned by UpsertProduct.
type UpsertResult struct {
	ID      int64        `json:"id"`
	Action  UpsertAction `json:"action"`
	Changes ChangeSet    `json:"changes,omitempty"`
}

// SaleItem is one cart line.
type SaleItem struct {
	BatchID     int64           `json:"batch_id"`
	Quantity    int             `json:"quantity"`
	PriceAtSale decimal.Decimal `json:"price_at_sale"`
}

// Sale is a committed sale with its line items.
type Sale struct {
	ID           int64           `db:"id" json:"id"`
	Total        decimal.Decimal `db:"total" json:"total"`
	CashReceived decimal.Decimal `db:"cash_received" json:"cash_received"`
	Change       decimal.Decimal `db:"change" json:"change"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	Items        []SaleLine      `db:"-" json:"items"`
}

// SaleLine is a stored sale item.
type SaleLine struct {
	ID          int64           `db:"id" json:"id"`
	SaleID      int64           `db:"sale_id" json:"sale_id"`
	BatchID     int64           `db:"batch_id" json:"batch_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	PriceAtSale decimal.Decimal `db:"price_at_sale" json:"price_at_sale"`
}

// HistoryRecord is an inventory_history row joined with its batch and product.
type HistoryRecord struct {
	ID          int64   `db:"id" json:"id"`
	BatchID     int64   `db:"batch_id" json:"batch_id"`
	Change      int     `db:"change" json:"change"`
	Reason      Reason  `db:"reason" json:"reason"`
	Note        *string `db:"note" json:"note"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
	ProductName string  `db:"product_name" json:"product_name"`
	BatchNumber *string `db:"batch_number" json:"batch_number"`
}

// ProductHistoryRecord is a product_history row.
type ProductHistoryRecord struct {
	ID        int64   `db:"id" json:"id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Field     string  `db:"field" json:"field"`
	OldValue  *string `db:"old_value" json:"old_value"`
	NewValue  *string `db:"new_value" json:"new_value"`
	Note      *string `db:"note" json:"note"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}
