package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Podjisin/saresari-pos/internal/store"
)

// normalizeDate trims an optional calendar date and checks it parses as
// YYYY-MM-DD. Blank dates become nil.
func normalizeDate(field string, d *string) (*string, error) {
	if d == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil, nil
	}
	if _, err := time.Parse(store.DateLayout, v); err != nil {
		return nil, store.Validation("%s must be a YYYY-MM-DD date, got %q", field, v)
	}
	return &v, nil
}

// normalizeText trims an optional string. Blank strings become nil.
func normalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func requireNonNegativeMoney(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return store.Validation("%s must not be negative, got %s", field, d)
	}
	return nil
}

func requireID(entity string, id int64) error {
	if id <= 0 {
		return store.Validation("%s id must be positive, got %d", entity, id)
	}
	return nil
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalIDPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
