package invoice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"invoicer/internal/core"
)

var ErrDuplicateColumn = errors.New("duplicate column name")

// Value is a scalar that may be written as a string or a number in a draft.
type Value string

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	if string(b) == "null" {
		*v = ""
		return nil
	}
	*v = Value(b)
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar value", node.Line)
	}
	if node.Tag == "!!null" {
		*v = ""
		return nil
	}
	*v = Value(node.Value)
	return nil
}

type (
	// Draft is a whole invoice described in a YAML or JSON file. Custom
	// values are keyed by column name.
	Draft struct {
		InvoiceNumber string        `yaml:"invoiceNumber" json:"invoiceNumber"`
		ClientName    string        `yaml:"clientName" json:"clientName"`
		ClientEmail   string        `yaml:"clientEmail" json:"clientEmail"`
		IssueDate     string        `yaml:"issueDate" json:"issueDate"`
		DueDate       string        `yaml:"dueDate" json:"dueDate"`
		Category      string        `yaml:"category" json:"category"`
		Notes         string        `yaml:"notes" json:"notes"`
		Columns       []DraftColumn `yaml:"columns" json:"columns"`
		Items         []DraftItem   `yaml:"items" json:"items"`
	}

	DraftColumn struct {
		Name string `yaml:"name" json:"name"`
		Kind string `yaml:"kind" json:"kind"`
	}

	DraftItem struct {
		Description string           `yaml:"description" json:"description"`
		Quantity    Value            `yaml:"quantity" json:"quantity"`
		Rate        Value            `yaml:"rate" json:"rate"`
		Custom      map[string]Value `yaml:"custom" json:"custom"`
	}
)

// LoadDraft reads a draft file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func LoadDraft(path string) (*Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseDraftJSON(data)
	}
	return ParseDraftYAML(data)
}

func ParseDraftYAML(data []byte) (*Draft, error) {
	var d Draft
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse draft yaml: %w", err)
	}
	return &d, nil
}

func ParseDraftJSON(data []byte) (*Draft, error) {
	var d Draft
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse draft json: %w", err)
	}
	return &d, nil
}

// Header converts the draft's header fields.
func (d *Draft) Header() (core.Header, error) {
	issue, err := core.ParseDate(d.IssueDate)
	if err != nil {
		return core.Header{}, &core.ValidationError{Field: "issueDate", Err: err}
	}
	due, err := core.ParseDate(d.DueDate)
	if err != nil {
		return core.Header{}, &core.ValidationError{Field: "dueDate", Err: err}
	}
	cat, err := core.ParseCategory(d.Category)
	if err != nil {
		return core.Header{}, &core.ValidationError{Field: "category", Err: err}
	}
	return core.Header{
		InvoiceNumber: strings.TrimSpace(d.InvoiceNumber),
		ClientName:    strings.TrimSpace(d.ClientName),
		ClientEmail:   strings.TrimSpace(d.ClientEmail),
		IssueDate:     issue,
		DueDate:       due,
		Category:      cat,
		Notes:         d.Notes,
	}, nil
}

// Build replays the draft through the invoice mutation API. A draft with no
// items yields the single empty item of a new invoice.
func (d *Draft) Build() (*Invoice, error) {
	h, err := d.Header()
	if err != nil {
		return nil, err
	}
	inv := New()
	inv.SetHeader(h)

	byName := map[string]string{}
	for _, dc := range d.Columns {
		kind, err := core.ParseColumnKind(dc.Kind)
		if err != nil {
			return nil, &core.ValidationError{Field: "columns", Err: err}
		}
		key := strings.TrimSpace(dc.Name)
		if _, dup := byName[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, key)
		}
		col, err := inv.AddColumn(dc.Name, kind)
		if err != nil {
			return nil, err
		}
		byName[col.Name] = col.ID
	}

	for i, di := range d.Items {
		var id string
		if i == 0 {
			id = inv.Items()[0].ID
		} else {
			id = inv.AddItem().ID
		}
		if err := inv.UpdateField(id, FieldDescription, di.Description); err != nil {
			return nil, err
		}
		if di.Quantity != "" {
			if err := inv.UpdateField(id, FieldQuantity, string(di.Quantity)); err != nil {
				return nil, err
			}
		}
		if err := inv.UpdateField(id, FieldRate, string(di.Rate)); err != nil {
			return nil, err
		}
		for name, raw := range di.Custom {
			colID, ok := byName[strings.TrimSpace(name)]
			if !ok {
				return nil, fmt.Errorf("item %d: %w: %q", i+1, core.ErrUnknownColumn, name)
			}
			if err := inv.UpdateCustomField(id, colID, string(raw)); err != nil {
				return nil, err
			}
		}
	}
	return inv, nil
}
