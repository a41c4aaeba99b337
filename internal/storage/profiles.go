package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"invoicer/internal/core"
	"invoicer/internal/log"
)

const profileColumns = `company_name, address, email, phone, logo_url, currency, updated_at`

// Delete implements records.RecordDeleter
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	r.logger.InfoContext(ctx, "Invoice record deleted", log.FieldRecordID, id)
	return nil
}

// GetProfile implements records.ProfileReader
func (r *SQLiteRepository) GetProfile(ctx context.Context, owner string) (core.Profile, error) {
	var (
		p       core.Profile
		updated string
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE owner = ?`, owner).
		Scan(&p.CompanyName, &p.Address, &p.Email, &p.Phone, &p.LogoURL, &p.Currency, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, owner)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return core.Profile{}, fmt.Errorf("profile %s updated_at: %w", owner, err)
	}
	return p, nil
}

// SaveProfile implements records.ProfileWriter
func (r *SQLiteRepository) SaveProfile(ctx context.Context, owner string, p core.Profile) error {
	p, err := prepareProfile(p, r.now)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO profiles (owner, `+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner) DO UPDATE SET
			company_name = excluded.company_name, address = excluded.address,
			email = excluded.email, phone = excluded.phone, logo_url = excluded.logo_url,
			currency = excluded.currency, updated_at = excluded.updated_at`,
		owner, p.CompanyName, p.Address, p.Email, p.Phone, p.LogoURL, p.Currency,
		p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	r.logger.InfoContext(ctx, "Company profile saved", log.FieldOwner, owner)
	return nil
}

// Delete implements records.RecordDeleter
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
	}
	return nil
}

// GetProfile implements records.ProfileReader
func (r *PostgresRepository) GetProfile(ctx context.Context, owner string) (core.Profile, error) {
	var p core.Profile
	err := r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE owner = $1`, owner).
		Scan(&p.CompanyName, &p.Address, &p.Email, &p.Phone, &p.LogoURL, &p.Currency, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("%w: %s", core.ErrProfileNotFound, owner)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveProfile implements records.ProfileWriter
func (r *PostgresRepository) SaveProfile(ctx context.Context, owner string, p core.Profile) error {
	p, err := prepareProfile(p, r.now)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO profiles (owner, `+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner) DO UPDATE SET
			company_name = excluded.company_name, address = excluded.address,
			email = excluded.email, phone = excluded.phone, logo_url = excluded.logo_url,
			currency = excluded.currency, updated_at = excluded.updated_at`,
		owner, p.CompanyName, p.Address, p.Email, p.Phone, p.LogoURL, p.Currency, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func prepareProfile(p core.Profile, now func() time.Time) (core.Profile, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return p, err
	}
	p.UpdatedAt = now().UTC()
	return p, nil
}
