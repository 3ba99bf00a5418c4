package ledger

import (
	"fmt"
	"strings"
)

// Product fields tracked in product_history.
const (
	FieldName         = "name"
	FieldSellingPrice = "selling_price"
	FieldUnitID       = "unit_id"
	FieldCategoryID   = "category_id"
	FieldMultiple     = "multiple"
)

// FieldChange is one changed product field.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
	Note  string `json:"note"`
}

// ChangeSet lists the fields an upsert changes, in a fixed field order.
type ChangeSet []FieldChange

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

// Note joins the per-field notes into the combined summary.
func (c ChangeSet) Note() string {
	notes := make([]string, len(c))
	for i, fc := range c {
		notes[i] = fc.Note
	}
	return strings.Join(notes, "; ")
}

// Fields returns the changed field names.
func (c ChangeSet) Fields() []string {
	fields := make([]string, len(c))
	for i, fc := range c {
		fields[i] = fc.Field
	}
	return fields
}

// DiffProduct compares stored product data with an incoming payload.
// The barcode is the lookup key and is never part of the diff.
func DiffProduct(old Product, in ProductInput) ChangeSet {
	var cs ChangeSet
	if old.Name != in.Name {
		cs = append(cs, FieldChange{
			Field: FieldName,
			Old:   old.Name,
			New:   in.Name,
			Note:  fmt.Sprintf("Name changed from %q to %q", old.Name, in.Name),
		})
	}
	if !old.SellingPrice.Equal(in.SellingPrice) {
		cs = append(cs, FieldChange{
			Field: FieldSellingPrice,
			Old:   old.SellingPrice.String(),
			New:   in.SellingPrice.String(),
			Note:  fmt.Sprintf("Selling price changed from %s to %s", old.SellingPrice, in.SellingPrice),
		})
	}
	if !equalIDPtr(old.UnitID, in.UnitID) {
		o, n := formatValue(old.UnitID), formatValue(in.UnitID)
		cs = append(cs, FieldChange{
			Field: FieldUnitID,
			Old:   o,
			New:   n,
			Note:  fmt.Sprintf("Unit changed from %s to %s", o, n),
		})
	}
	if !equalIDPtr(old.CategoryID, in.CategoryID) {
		o, n := formatValue(old.CategoryID), formatValue(in.CategoryID)
		cs = append(cs, FieldChange{
			Field: FieldCategoryID,
			Old:   o,
			New:   n,
			Note:  fmt.Sprintf("Category changed from %s to %s", o, n),
		})
	}
	return cs
}
