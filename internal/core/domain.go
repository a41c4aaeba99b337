package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

const (
	KindText   ColumnKind = "text"
	KindNumber ColumnKind = "number"
)

const (
	CategoryNone        Category = ""
	CategoryDevelopment Category = "development"
	CategoryDesign      Category = "design"
	CategoryConsulting  Category = "consulting"
	CategoryMarketing   Category = "marketing"
	CategoryOther       Category = "other"
)

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

type (
	ColumnKind string
	Category   string
	Status     string

	Date struct {
		time.Time
	}

	// Column is a user-defined extra table column.
	Column struct {
		ID   string     `json:"id"`
		Name string     `json:"name"`
		Kind ColumnKind `json:"kind"`
	}

	// CustomValue is one cell of a custom column. Number is meaningful
	// only when Kind is KindNumber.
	CustomValue struct {
		Kind   ColumnKind
		Text   string
		Number decimal.Decimal
	}

	// LineItem is a read-only view of an invoice row with its derived amount.
	LineItem struct {
		ID          string                 `json:"id"`
		Description string                 `json:"description"`
		Quantity    decimal.Decimal        `json:"quantity"`
		Rate        decimal.Decimal        `json:"rate"`
		Amount      decimal.Decimal        `json:"amount"`
		Custom      map[string]CustomValue `json:"custom"`
	}

	Header struct {
		InvoiceNumber string   `json:"invoiceNumber"`
		ClientName    string   `json:"clientName"`
		ClientEmail   string   `json:"clientEmail"`
		IssueDate     Date     `json:"issueDate"`
		DueDate       Date     `json:"dueDate"`
		Category      Category `json:"category"`
		Notes         string   `json:"notes"`
	}

	// Record is the persisted summary of an exported invoice.
	Record struct {
		ID            string          `json:"id"`
		Owner         string          `json:"owner"`
		InvoiceNumber string          `json:"invoiceNumber"`
		ClientName    string          `json:"clientName"`
		ClientEmail   string          `json:"clientEmail"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Category      Category        `json:"category"`
		Status        Status          `json:"status"`
		Date          Date            `json:"date"`
		DueDate       Date            `json:"dueDate"`
		CreatedAt     time.Time       `json:"createdAt"`
	}
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidKind          = errors.New("invalid column kind")
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrEmptyColumnName      = errors.New("column name is required")
	ErrMissingClientName    = errors.New("client name is required")
	ErrMissingClientEmail   = errors.New("client email is required")
	ErrInvalidEmail         = errors.New("not a valid email address")
	ErrMissingInvoiceNumber = errors.New("invoice number is required")
	ErrMissingDueDate       = errors.New("due date is required")
	ErrUnknownColumn        = errors.New("unknown column")
	ErrItemNotFound         = errors.New("line item not found")
	ErrLastItem             = errors.New("cannot remove the last line item")
	ErrUnknownField         = errors.New("unknown line item field")
	ErrRecordNotFound       = errors.New("record not found")
)

// ValidationError names the offending field. It matches both ErrValidation
// and the wrapped cause under errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(b))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func ParseColumnKind(s string) (ColumnKind, error) {
	switch ColumnKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindText, "":
		return KindText, nil
	case KindNumber:
		return KindNumber, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Coerce converts raw input to a cell value of this kind. Unparsable
// numbers become 0.
func (k ColumnKind) Coerce(raw string) CustomValue {
	if k == KindNumber {
		return CustomValue{Kind: KindNumber, Number: ParseLenient(raw)}
	}
	return CustomValue{Kind: KindText, Text: raw}
}

// Display renders the cell for the document table. Empty text shows "-".
func (v CustomValue) Display() string {
	if v.Kind == KindNumber {
		return v.Number.String()
	}
	if v.Text == "" {
		return "-"
	}
	return v.Text
}

func (v CustomValue) MarshalJSON() ([]byte, error) {
	if v.Kind == KindNumber {
		return []byte(v.Number.String()), nil
	}
	return json.Marshal(v.Text)
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryNone, CategoryDevelopment, CategoryDesign, CategoryConsulting, CategoryMarketing, CategoryOther:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// Label is the human-readable form shown on the document.
func (c Category) Label() string {
	if c == CategoryNone {
		return ""
	}
	s := string(c)
	return strings.ToUpper(s[:1]) + s[1:]
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusSent, StatusPaid, StatusOverdue:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Validate checks the fields required before an invoice can be exported.
// The first missing field is reported.
func (h Header) Validate() error {
	if strings.TrimSpace(h.ClientName) == "" {
		return &ValidationError{Field: "clientName", Err: ErrMissingClientName}
	}
	if strings.TrimSpace(h.InvoiceNumber) == "" {
		return &ValidationError{Field: "invoiceNumber", Err: ErrMissingInvoiceNumber}
	}
	if h.DueDate.IsEmpty() {
		return &ValidationError{Field: "dueDate", Err: ErrMissingDueDate}
	}
	return nil
}

// ValidateEmail accepts a bare address such as ap@acme.test. Display names
// and surrounding whitespace are rejected.
func ValidateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, s)
	}
	return nil
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.InvoiceNumber) == "" {
		return &ValidationError{Field: "invoiceNumber", Err: ErrMissingInvoiceNumber}
	}
	if strings.TrimSpace(r.ClientName) == "" {
		return &ValidationError{Field: "clientName", Err: ErrMissingClientName}
	}
	if utf8.RuneCountInString(r.Description) > 500 {
		return &ValidationError{Field: "description", Err: errors.New("description too long (max 500 characters)")}
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return &ValidationError{Field: "status", Err: err}
	}
	return nil
}
