package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/core"
	"invoicer/internal/log"

	_ "modernc.org/sqlite"
)

const recordColumns = `id, owner, invoice_number, client_name, client_email, amount_cents,
	description, category, status, issue_date, due_date, created_at`

// SQLiteRepository stores invoice records in a local SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save implements records.RecordWriter
func (r *SQLiteRepository) Save(ctx context.Context, rec core.Record) (string, error) {
	rec, err := prepare(rec, r.now)
	if err != nil {
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO invoices (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.InvoiceNumber, rec.ClientName, rec.ClientEmail,
		core.ToCents(rec.Amount), rec.Description, string(rec.Category), string(rec.Status),
		rec.Date.String(), rec.DueDate.String(), rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("insert invoice: %w", err)
	}

	r.logger.InfoContext(ctx, "Invoice record saved",
		log.FieldRecordID, rec.ID,
		log.FieldInvoiceNumber, rec.InvoiceNumber,
		log.FieldAmount, rec.Amount.StringFixed(2))
	return rec.ID, nil
}

// ListRecords implements records.RecordLister
func (r *SQLiteRepository) ListRecords(ctx context.Context, owner string) ([]core.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM invoices`
	var args []any
	if owner != "" {
		query += ` WHERE owner = ?`
		args = append(args, owner)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var (
			rec                   core.Record
			cents                 int64
			category, status      string
			issue, due, createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.InvoiceNumber, &rec.ClientName, &rec.ClientEmail,
			&cents, &rec.Description, &category, &status, &issue, &due, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		rec.Amount = core.FromCents(cents)
		rec.Category = core.Category(category)
		rec.Status = core.Status(status)
		if rec.Date, err = core.ParseDate(issue); err != nil {
			return nil, fmt.Errorf("invoice %s: %w", rec.ID, err)
		}
		if rec.DueDate, err = core.ParseDate(due); err != nil {
			return nil, fmt.Errorf("invoice %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invoice %s created_at: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStatus implements records.StatusUpdater
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE invoices SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	r.logger.InfoContext(ctx, "Invoice status updated", log.FieldRecordID, id, log.FieldStatus, string(status))
	return nil
}

// prepare fills defaults shared by every SQL backend and validates.
func prepare(rec core.Record, now func() time.Time) (core.Record, error) {
	if rec.Status == "" {
		rec.Status = core.StatusPending
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return rec, &core.ValidationError{Field: "id", Err: errors.New("record id must be a UUID")}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now().UTC()
	}
	return rec, nil
}
