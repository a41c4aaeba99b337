package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/core"
)

func toRow(r core.Record) []any {
	return []any{
		r.ID, r.Owner, r.InvoiceNumber, r.ClientName, r.ClientEmail,
		r.Amount.StringFixed(2), r.Description, string(r.Category), string(r.Status),
		r.Date.String(), r.DueDate.String(), r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// parseRow converts a sheet row back into a record. The header row and
// rows without a UUID in column A are rejected.
func parseRow(cols []string) (core.Record, bool) {
	if len(cols) < 9 {
		return core.Record{}, false
	}
	if _, err := uuid.Parse(cols[0]); err != nil {
		return core.Record{}, false
	}
	amount, err := core.ParseAmount(cols[5])
	if err != nil {
		return core.Record{}, false
	}
	status, err := core.ParseStatus(cols[8])
	if err != nil {
		return core.Record{}, false
	}
	category, err := core.ParseCategory(cols[7])
	if err != nil {
		category = core.CategoryOther
	}
	rec := core.Record{
		ID:            cols[0],
		Owner:         cols[1],
		InvoiceNumber: cols[2],
		ClientName:    cols[3],
		ClientEmail:   cols[4],
		Amount:        amount,
		Description:   cols[6],
		Category:      category,
		Status:        status,
	}
	// Dates are best-effort; a hand-edited cell should not hide the row.
	rec.Date, _ = core.ParseDate(safeGet(cols, 9))
	rec.DueDate, _ = core.ParseDate(safeGet(cols, 10))
	if ts := safeGet(cols, 11); ts != "" {
		rec.CreatedAt, _ = time.Parse(time.RFC3339, ts)
	}
	return rec, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// noOwner keys the profile of deployments running without authentication,
// since a blank cell cannot be told apart from a cleared row.
const noOwner = "-"

func ownerKey(owner string) string {
	if strings.TrimSpace(owner) == "" {
		return noOwner
	}
	return owner
}

func toProfileRow(owner string, p core.Profile) []any {
	return []any{
		ownerKey(owner), p.CompanyName, p.Address, p.Email, p.Phone, p.LogoURL, p.Currency,
		p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// findOwner returns the index of the owner's profile row, or -1. The header
// row never matches.
func findOwner(rows [][]any, owner string) int {
	key := ownerKey(owner)
	for i, row := range rows {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] != key {
			continue
		}
		if i == 0 && key == profileHeader[0] {
			continue
		}
		return i
	}
	return -1
}

func parseProfileRow(cols []string) core.Profile {
	p := core.Profile{
		CompanyName: safeGet(cols, 1),
		Address:     safeGet(cols, 2),
		Email:       safeGet(cols, 3),
		Phone:       safeGet(cols, 4),
		LogoURL:     safeGet(cols, 5),
		Currency:    safeGet(cols, 6),
	}
	if p.Currency == "" {
		p.Currency = core.DefaultCurrency
	}
	if ts := safeGet(cols, 7); ts != "" {
		p.UpdatedAt, _ = time.Parse(time.RFC3339, ts)
	}
	return p
}
