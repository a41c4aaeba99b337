package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"invoicer/internal/core"
	"invoicer/internal/invoice"
)

const maxBodyBytes = 1 << 20

type (
	headerRequest struct {
		InvoiceNumber string `json:"invoiceNumber"`
		ClientName    string `json:"clientName"`
		ClientEmail   string `json:"clientEmail"`
		IssueDate     string `json:"issueDate"`
		DueDate       string `json:"dueDate"`
		Category      string `json:"category"`
		Notes         string `json:"notes"`
	}

	// profileRequest is a partial update. Absent fields keep their value.
	profileRequest struct {
		CompanyName *string `json:"companyName"`
		Address     *string `json:"address"`
		Email       *string `json:"email"`
		Phone       *string `json:"phone"`
		LogoURL     *string `json:"logoUrl"`
		Currency    *string `json:"currency"`
	}

	columnRequest struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}

	// itemRequest edits one built-in field. Value accepts strings or
	// numbers.
	itemRequest struct {
		Field string        `json:"field"`
		Value invoice.Value `json:"value"`
	}

	customRequest struct {
		Value invoice.Value `json:"value"`
	}

	statusRequest struct {
		Status string `json:"status"`
	}
)

// decodeJSON reads a single JSON object from the body. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return &badRequestError{errors.New("request body is empty")}
		}
		return &badRequestError{fmt.Errorf("decode request: %w", err)}
	}
	if dec.More() {
		return &badRequestError{errors.New("request body must contain a single JSON object")}
	}
	return nil
}

// toHeader parses dates and category the same way invoice drafts do.
func (h headerRequest) toHeader() (core.Header, error) {
	d := invoice.Draft{
		InvoiceNumber: h.InvoiceNumber,
		ClientName:    h.ClientName,
		ClientEmail:   h.ClientEmail,
		IssueDate:     h.IssueDate,
		DueDate:       h.DueDate,
		Category:      h.Category,
		Notes:         h.Notes,
	}
	return d.Header()
}

func (c columnRequest) kind() (core.ColumnKind, error) {
	k, err := core.ParseColumnKind(c.Kind)
	if err != nil {
		return "", &core.ValidationError{Field: "kind", Err: err}
	}
	return k, nil
}

func (req profileRequest) apply(p core.Profile) core.Profile {
	set := func(dst, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.CompanyName, req.CompanyName)
	set(&p.Address, req.Address)
	set(&p.Email, req.Email)
	set(&p.Phone, req.Phone)
	set(&p.LogoURL, req.LogoURL)
	set(&p.Currency, req.Currency)
	return p
}
