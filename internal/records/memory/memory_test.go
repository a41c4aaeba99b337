package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
	"invoicer/internal/records"
)

var _ records.Repository = (*Store)(nil)

func TestSaveAndList(t *testing.T) {
	s := New()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { clock = clock.Add(time.Minute); return clock }
	ctx := context.Background()

	first, err := s.Save(ctx, core.Record{Owner: "u1", InvoiceNumber: "1", ClientName: "Acme", Amount: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save(ctx, core.Record{Owner: "u2", InvoiceNumber: "2", ClientName: "Other"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	second, err := s.Save(ctx, core.Record{Owner: "u1", InvoiceNumber: "3", ClientName: "Acme"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListRecords(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != second || got[1].ID != first {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[1].Status != core.StatusPending {
		t.Fatalf("expected default pending status, got %s", got[1].Status)
	}
	all, _ := s.ListRecords(ctx, "")
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
}

func TestSaveValidates(t *testing.T) {
	_, err := New().Save(context.Background(), core.Record{InvoiceNumber: "1"})
	if !errors.Is(err, core.ErrMissingClientName) {
		t.Fatalf("expected ErrMissingClientName, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	id, _ := s.Save(ctx, core.Record{InvoiceNumber: "1", ClientName: "Acme"})

	if err := s.UpdateStatus(ctx, id, core.StatusSent); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.ListRecords(ctx, "")
	if got[0].Status != core.StatusSent {
		t.Fatalf("expected sent, got %s", got[0].Status)
	}
	if err := s.UpdateStatus(ctx, "nope", core.StatusPaid); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if err := s.UpdateStatus(ctx, id, "lost"); !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	keep, _ := s.Save(ctx, core.Record{InvoiceNumber: "1", ClientName: "Acme"})
	drop, _ := s.Save(ctx, core.Record{InvoiceNumber: "2", ClientName: "Acme"})

	if err := s.Delete(ctx, drop); err != nil {
		t.Fatalf("delete: %v", err)
	}
	recs, _ := s.ListRecords(ctx, "")
	if len(recs) != 1 || recs[0].ID != keep {
		t.Fatalf("unexpected records after delete %+v", recs)
	}
	if err := s.Delete(ctx, drop); !errors.Is(err, core.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestProfiles(t *testing.T) {
	s := New()
	s.now = func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	if _, err := s.GetProfile(ctx, "u1"); !errors.Is(err, core.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if err := s.SaveProfile(ctx, "u1", core.Profile{CompanyName: " Northwind ", Currency: "eur"}); err != nil {
		t.Fatalf("save profile: %v", err)
	}
	p, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.CompanyName != "Northwind" || p.Currency != "EUR" || p.UpdatedAt.IsZero() {
		t.Fatalf("unexpected profile %+v", p)
	}
	if _, err := s.GetProfile(ctx, "u2"); !errors.Is(err, core.ErrProfileNotFound) {
		t.Fatalf("profiles must be per owner, got %v", err)
	}
	if err := s.SaveProfile(ctx, "u1", core.Profile{Email: "nope"}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if p, _ := s.GetProfile(ctx, "u1"); p.CompanyName != "Northwind" {
		t.Fatalf("rejected save must not replace the profile, got %+v", p)
	}
}
