// Package invoice holds the composition model: the custom column schema,
// the ordered line-item store and the totals derived from them.
package invoice

import (
	"strings"

	"github.com/google/uuid"

	"invoicer/internal/core"
)

// Schema is the ordered registry of user-defined columns. Insertion order
// is display order.
type Schema struct {
	columns []core.Column
	newID   func() string
}

func NewSchema() *Schema {
	return &Schema{newID: uuid.NewString}
}

// Add appends a column. Names are trimmed; an empty name is rejected.
func (s *Schema) Add(name string, kind core.ColumnKind) (core.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Column{}, &core.ValidationError{Field: "name", Err: core.ErrEmptyColumnName}
	}
	if kind == "" {
		kind = core.KindText
	}
	if kind != core.KindText && kind != core.KindNumber {
		return core.Column{}, &core.ValidationError{Field: "kind", Err: core.ErrInvalidKind}
	}
	col := core.Column{ID: s.newID(), Name: name, Kind: kind}
	s.columns = append(s.columns, col)
	return col, nil
}

// Remove deletes the column and reports whether it existed.
func (s *Schema) Remove(id string) bool {
	for i, c := range s.columns {
		if c.ID == id {
			s.columns = append(s.columns[:i], s.columns[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Schema) Lookup(id string) (core.Column, bool) {
	for _, c := range s.columns {
		if c.ID == id {
			return c, true
		}
	}
	return core.Column{}, false
}

// Columns returns a copy of the columns in display order.
func (s *Schema) Columns() []core.Column {
	out := make([]core.Column, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s *Schema) Len() int { return len(s.columns) }
