// Package records defines the persistence collaborators for exported
// invoices and for the per-owner company profile.
package records

import (
	"context"

	"invoicer/internal/core"
)

// Ports for outbound adapters.
type (
	RecordWriter interface {
		// Save stores the record and returns its id.
		Save(ctx context.Context, r core.Record) (id string, err error)
	}

	RecordDeleter interface {
		// Delete removes the record. An unknown id is core.ErrRecordNotFound.
		Delete(ctx context.Context, id string) error
	}

	RecordLister interface {
		// ListRecords returns the owner's records, newest first. An empty
		// owner lists every record.
		ListRecords(ctx context.Context, owner string) ([]core.Record, error)
	}

	StatusUpdater interface {
		UpdateStatus(ctx context.Context, id string, status core.Status) error
	}

	ProfileReader interface {
		// GetProfile returns core.ErrProfileNotFound when the owner has
		// never saved one.
		GetProfile(ctx context.Context, owner string) (core.Profile, error)
	}

	ProfileWriter interface {
		// SaveProfile replaces the owner's profile.
		SaveProfile(ctx context.Context, owner string, p core.Profile) error
	}

	ProfileStore interface {
		ProfileReader
		ProfileWriter
	}

	Repository interface {
		RecordWriter
		RecordDeleter
		RecordLister
		StatusUpdater
		ProfileStore
		Close() error
	}
)
