// Package google stores invoice records as rows of a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"invoicer/internal/core"
	"invoicer/internal/log"
	"invoicer/internal/records"
)

// Sheet columns, A through L.
var header = []any{
	"ID", "Owner", "Invoice", "Client", "Email", "Amount",
	"Description", "Category", "Status", "Issue date", "Due date", "Created",
}

const statusColumn = "I"

// Profile tab columns, A through H.
var profileHeader = []any{
	"Owner", "Company", "Address", "Email", "Phone", "Logo", "Currency", "Updated",
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	profileSheet  string
	logger        *log.Logger
	now           func() time.Time
}

var _ records.Repository = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
// Both tabs must already exist in the spreadsheet.
type Config struct {
	SpreadsheetID    string
	SheetName        string
	ProfileSheetName string
	CredentialsJSON  string
	CredentialsFile  string
}

// ConfigFromEnv reads GOOGLE_SPREADSHEET_ID, GOOGLE_SHEET_NAME,
// GOOGLE_PROFILE_SHEET_NAME and the service account from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func ConfigFromEnv() Config {
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return Config{
		SpreadsheetID:    strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		SheetName:        strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME")),
		ProfileSheetName: strings.TrimSpace(os.Getenv("GOOGLE_PROFILE_SHEET_NAME")),
		CredentialsJSON:  strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile:  file,
	}
}

// New creates a Sheets client authenticated with a service account.
// Extra options are appended after the credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var clientOpts []goption.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	case len(opts) == 0:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	clientOpts = append(clientOpts, goption.WithScopes(gsheet.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = "Invoices"
	}
	profileSheet := cfg.ProfileSheetName
	if profileSheet == "" {
		profileSheet = "Profiles"
	}
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         sheet,
		profileSheet:  profileSheet,
		logger:        logger.WithComponent(log.ComponentSheets),
		now:           time.Now,
	}, nil
}

func (c *Client) Close() error { return nil }

// Save appends the record as a new row, writing the header first when the
// tab is empty.
func (c *Client) Save(ctx context.Context, r core.Record) (string, error) {
	if r.Status == "" {
		r.Status = core.StatusPending
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = c.now().UTC()
	}

	rows, err := c.rows(ctx)
	if err != nil {
		return "", err
	}
	values := [][]any{toRow(r)}
	if len(rows) == 0 {
		values = append([][]any{header}, values...)
	}

	rng := fmt.Sprintf("%s!A:L", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Invoice record appended",
		log.FieldRecordID, r.ID,
		log.FieldInvoiceNumber, r.InvoiceNumber,
		"range", ref)
	return r.ID, nil
}

// ListRecords scans the tab. Rows that do not parse are skipped.
func (c *Client) ListRecords(ctx context.Context, owner string) ([]core.Record, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Record
	for i, row := range rows {
		rec, ok := parseRow(toStrings(row))
		if !ok {
			if i > 0 && len(row) > 0 {
				c.logger.WarnContext(ctx, "Skipping malformed sheet row", "row", i+1)
			}
			continue
		}
		if owner != "" && rec.Owner != owner {
			continue
		}
		out = append(out, rec)
	}
	// Rows are appended oldest first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// UpdateStatus rewrites the status cell of the row holding id.
func (c *Client) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return err
	}
	rows, err := c.rows(ctx)
	if err != nil {
		return err
	}
	for i, row := range rows {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] != id {
			continue
		}
		rng := fmt.Sprintf("%s!%s%d", c.sheet, statusColumn, i+1)
		vr := &gsheet.ValueRange{Values: [][]any{{string(status)}}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
}

// Delete clears the row holding id. The emptied row stays in place and is
// skipped by ListRecords.
func (c *Client) Delete(ctx context.Context, id string) error {
	rows, err := c.rows(ctx)
	if err != nil {
		return err
	}
	for i, row := range rows {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] != id {
			continue
		}
		rng := fmt.Sprintf("%s!A%d:L%d", c.sheet, i+1, i+1)
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
			Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear %s: %w", rng, err)
		}
		c.logger.InfoContext(ctx, "Invoice record cleared", log.FieldRecordID, id, "range", rng)
		return nil
	}
	return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
}

func (c *Client) GetProfile(ctx context.Context, owner string) (core.Profile, error) {
	rows, err := c.values(ctx, fmt.Sprintf("%s!A:H", c.profileSheet))
	if err != nil {
		return core.Profile{}, err
	}
	if i := findOwner(rows, owner); i >= 0 {
		return parseProfileRow(toStrings(rows[i])), nil
	}
	return core.Profile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, owner)
}

// SaveProfile rewrites the owner's row in place, or appends one.
func (c *Client) SaveProfile(ctx context.Context, owner string, p core.Profile) error {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = c.now().UTC()

	rows, err := c.values(ctx, fmt.Sprintf("%s!A:H", c.profileSheet))
	if err != nil {
		return err
	}
	row := toProfileRow(owner, p)
	if i := findOwner(rows, owner); i >= 0 {
		rng := fmt.Sprintf("%s!A%d:H%d", c.profileSheet, i+1, i+1)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	values := [][]any{row}
	if len(rows) == 0 {
		values = append([][]any{profileHeader}, values...)
	}
	rng := fmt.Sprintf("%s!A:H", c.profileSheet)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.profileSheet, err)
	}
	c.logger.InfoContext(ctx, "Company profile appended", log.FieldOwner, ownerKey(owner))
	return nil
}

func (c *Client) rows(ctx context.Context) ([][]any, error) {
	return c.values(ctx, fmt.Sprintf("%s!A:L", c.sheet))
}

func (c *Client) values(ctx context.Context, rng string) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
