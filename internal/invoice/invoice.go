package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

// Invoice is the aggregate edited during one composition session. It always
// holds at least one line item.
type Invoice struct {
	header core.Header
	schema *Schema
	store  *Store
}

// Snapshot is a read-only copy of the aggregate with derived values filled in.
type Snapshot struct {
	Header  core.Header     `json:"header"`
	Columns []core.Column   `json:"columns"`
	Items   []core.LineItem `json:"items"`
	Total   decimal.Decimal `json:"total"`
}

// New returns an invoice with one empty line item and no custom columns.
func New() *Invoice {
	inv := &Invoice{schema: NewSchema(), store: NewStore()}
	inv.store.Add()
	return inv
}

func (inv *Invoice) Header() core.Header { return inv.header }

func (inv *Invoice) SetHeader(h core.Header) { inv.header = h }

func (inv *Invoice) AddColumn(name string, kind core.ColumnKind) (core.Column, error) {
	return inv.schema.Add(name, kind)
}

// RemoveColumn deletes the column and prunes its values from every item.
// Removing an unknown column is a no-op.
func (inv *Invoice) RemoveColumn(id string) bool {
	if !inv.schema.Remove(id) {
		return false
	}
	inv.store.PruneColumn(id)
	return true
}

func (inv *Invoice) Columns() []core.Column { return inv.schema.Columns() }

func (inv *Invoice) AddItem() core.LineItem { return inv.store.Add() }

func (inv *Invoice) RemoveItem(id string) error { return inv.store.Remove(id) }

func (inv *Invoice) UpdateField(itemID string, field Field, raw string) error {
	return inv.store.UpdateField(itemID, field, raw)
}

// UpdateCustomField writes a custom value for a registered column. Writes
// to unknown columns are rejected.
func (inv *Invoice) UpdateCustomField(itemID, columnID, raw string) error {
	col, ok := inv.schema.Lookup(columnID)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownColumn, columnID)
	}
	return inv.store.SetCustom(itemID, col, raw)
}

func (inv *Invoice) Item(id string) (core.LineItem, error) { return inv.store.Item(id) }

func (inv *Invoice) Items() []core.LineItem { return inv.store.Items() }

func (inv *Invoice) Total() decimal.Decimal { return DocumentTotal(inv.store.Items()) }

func (inv *Invoice) Snapshot() Snapshot {
	items := inv.store.Items()
	return Snapshot{
		Header:  inv.header,
		Columns: inv.schema.Columns(),
		Items:   items,
		Total:   DocumentTotal(items),
	}
}
