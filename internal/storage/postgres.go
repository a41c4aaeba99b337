package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"invoicer/internal/core"
	"invoicer/internal/log"
)

// PostgresRepository stores invoice records in Postgres through a pgx pool.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	now    func() time.Time
}

func NewPostgresRepository(ctx context.Context, databaseURL string, maxConns int32, logger *log.Logger) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if logger == nil {
		logger = log.FromContext(ctx)
	}
	return &PostgresRepository{
		pool:   pool,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Save implements records.RecordWriter
func (r *PostgresRepository) Save(ctx context.Context, rec core.Record) (string, error) {
	rec, err := prepare(rec, r.now)
	if err != nil {
		return "", err
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO invoices (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.Owner, rec.InvoiceNumber, rec.ClientName, rec.ClientEmail,
		core.ToCents(rec.Amount), rec.Description, string(rec.Category), string(rec.Status),
		pgDate(rec.Date), pgDate(rec.DueDate), rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert invoice: %w", err)
	}

	r.logger.InfoContext(ctx, "Invoice record saved",
		log.FieldRecordID, rec.ID,
		log.FieldInvoiceNumber, rec.InvoiceNumber,
		log.FieldBackend, "postgres")
	return rec.ID, nil
}

// ListRecords implements records.RecordLister
func (r *PostgresRepository) ListRecords(ctx context.Context, owner string) ([]core.Record, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recordColumns+` FROM invoices
		WHERE $1 = '' OR owner = $1
		ORDER BY created_at DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		var (
			rec              core.Record
			cents            int64
			category, status string
			issue, due       pgtype.Date
		)
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.InvoiceNumber, &rec.ClientName, &rec.ClientEmail,
			&cents, &rec.Description, &category, &status, &issue, &due, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		rec.Amount = core.FromCents(cents)
		rec.Category = core.Category(category)
		rec.Status = core.Status(status)
		rec.Date = fromPgDate(issue)
		rec.DueDate = fromPgDate(due)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStatus implements records.StatusUpdater
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status core.Status) error {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	return nil
}

func pgDate(d core.Date) pgtype.Date {
	return pgtype.Date{Time: d.Time, Valid: !d.IsEmpty()}
}

func fromPgDate(d pgtype.Date) core.Date {
	if !d.Valid {
		return core.Date{}
	}
	return core.NewDate(d.Time.Year(), int(d.Time.Month()), d.Time.Day())
}
