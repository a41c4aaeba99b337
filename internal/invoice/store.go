package invoice

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

// Field names a built-in line item field that can be edited.
type Field string

const (
	FieldDescription Field = "description"
	FieldQuantity    Field = "quantity"
	FieldRate        Field = "rate"
)

func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldDescription, FieldQuantity, FieldRate:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownField, s)
	}
}

type item struct {
	id          string
	description string
	quantity    decimal.Decimal
	rate        decimal.Decimal
	custom      map[string]core.CustomValue
}

// Store is the ordered collection of line items. Amounts are never stored;
// every read derives them from quantity and rate.
type Store struct {
	items []*item
	newID func() string
}

func NewStore() *Store {
	return &Store{newID: uuid.NewString}
}

// Add appends an item with quantity 1 and rate 0.
func (s *Store) Add() core.LineItem {
	it := &item{
		id:       s.newID(),
		quantity: decimal.NewFromInt(1),
		rate:     decimal.Zero,
		custom:   map[string]core.CustomValue{},
	}
	s.items = append(s.items, it)
	return it.snapshot()
}

// Remove deletes an item. The sole remaining item cannot be removed.
func (s *Store) Remove(id string) error {
	idx := s.index(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", core.ErrItemNotFound, id)
	}
	if len(s.items) == 1 {
		return core.ErrLastItem
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// UpdateField sets a built-in field from raw user input. Quantity and rate
// parse leniently: unparsable input becomes 0.
func (s *Store) UpdateField(id string, field Field, raw string) error {
	switch field {
	case FieldDescription:
		return s.SetDescription(id, raw)
	case FieldQuantity:
		return s.SetQuantity(id, core.ParseLenient(raw))
	case FieldRate:
		return s.SetRate(id, core.ParseLenient(raw))
	default:
		return fmt.Errorf("%w: %q", core.ErrUnknownField, field)
	}
}

func (s *Store) SetDescription(id, description string) error {
	it, err := s.find(id)
	if err != nil {
		return err
	}
	it.description = description
	return nil
}

func (s *Store) SetQuantity(id string, q decimal.Decimal) error {
	it, err := s.find(id)
	if err != nil {
		return err
	}
	it.quantity = q
	return nil
}

func (s *Store) SetRate(id string, r decimal.Decimal) error {
	it, err := s.find(id)
	if err != nil {
		return err
	}
	it.rate = r
	return nil
}

// SetCustom stores raw coerced by the column's kind. The store does not
// check that col is registered; Invoice does.
func (s *Store) SetCustom(id string, col core.Column, raw string) error {
	it, err := s.find(id)
	if err != nil {
		return err
	}
	it.custom[col.ID] = col.Kind.Coerce(raw)
	return nil
}

// PruneColumn drops the column's value from every item.
func (s *Store) PruneColumn(columnID string) {
	for _, it := range s.items {
		delete(it.custom, columnID)
	}
}

// Items returns snapshots in insertion order.
func (s *Store) Items() []core.LineItem {
	out := make([]core.LineItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.snapshot()
	}
	return out
}

func (s *Store) Item(id string) (core.LineItem, error) {
	it, err := s.find(id)
	if err != nil {
		return core.LineItem{}, err
	}
	return it.snapshot(), nil
}

func (s *Store) Len() int { return len(s.items) }

func (s *Store) index(id string) int {
	for i, it := range s.items {
		if it.id == id {
			return i
		}
	}
	return -1
}

func (s *Store) find(id string) (*item, error) {
	idx := s.index(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrItemNotFound, id)
	}
	return s.items[idx], nil
}

func (it *item) snapshot() core.LineItem {
	custom := make(map[string]core.CustomValue, len(it.custom))
	for k, v := range it.custom {
		custom[k] = v
	}
	return core.LineItem{
		ID:          it.id,
		Description: it.description,
		Quantity:    it.quantity,
		Rate:        it.rate,
		Amount:      ItemAmount(it.quantity, it.rate),
		Custom:      custom,
	}
}
