package ledger

import "github.com/Podjisin/saresari-pos/internal/store"

// Reason tags why an inventory change occurred.
type Reason string

const (
	ReasonInitialStock Reason = "initial_stock"
	ReasonRestock      Reason = "restock"
	ReasonSale         Reason = "sale"
	ReasonAdjustment   Reason = "adjustment"
	ReasonDamaged      Reason = "damaged"
	ReasonExpired      Reason = "expired"
	ReasonTransfer     Reason = "transfer"
	ReasonDelete       Reason = "delete"
	ReasonEdit         Reason = "edit"
	ReasonMerge        Reason = "merge"
	ReasonSplit        Reason = "split"
	ReasonOther        Reason = "other"
)

// ChangeReasons returns the closed set of reasons in declaration order.
// History filters accept exactly these values.
func ChangeReasons() []Reason {
	return []Reason{
		ReasonInitialStock,
		ReasonRestock,
		ReasonSale,
		ReasonAdjustment,
		ReasonDamaged,
		ReasonExpired,
		ReasonTransfer,
		ReasonDelete,
		ReasonEdit,
		ReasonMerge,
		ReasonSplit,
		ReasonOther,
	}
}

// Valid reports whether r is one of ChangeReasons.
func (r Reason) Valid() bool {
	for _, known := range ChangeReasons() {
		if r == known {
			return true
		}
	}
	return false
}

// ParseReason converts s to a Reason.
func ParseReason(s string) (Reason, error) {
	r := Reason(s)
	if !r.Valid() {
		return "", store.Validation("unknown change reason %q", s)
	}
	return r, nil
}
