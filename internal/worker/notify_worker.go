package worker

import (
	"context"
	"fmt"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/log"
	"invoicer/internal/records"
)

// Deliverer hands a rendered invoice to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, msg *amqp.NotifyMessage) error
}

// Store is what the worker needs from the record backend.
type Store interface {
	records.RecordLister
	records.StatusUpdater
}

// NotifyWorker consumes notify messages, delivers the artifact and moves a
// pending or overdue record to sent. Paid records keep their status.
type NotifyWorker struct {
	store     Store
	deliverer Deliverer
	logger    *log.Logger
	now       func() time.Time
}

func NewNotifyWorker(store Store, deliverer Deliverer, logger *log.Logger) *NotifyWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &NotifyWorker{
		store:     store,
		deliverer: deliverer,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// HandleNotify processes a single notify message from AMQP.
func (w *NotifyWorker) HandleNotify(ctx context.Context, msg *amqp.NotifyMessage) error {
	if err := msg.Validate(); err != nil {
		w.logger.WarnContext(ctx, "Dropping invalid notify message",
			log.FieldInvoiceNumber, msg.InvoiceNumber,
			log.FieldError, err)
		return err
	}

	w.logger.InfoContext(ctx, "Processing notify message",
		log.FieldRecordID, msg.RecordID,
		log.FieldInvoiceNumber, msg.InvoiceNumber,
		log.FieldArtifact, msg.ArtifactName)

	if err := w.deliverer.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver invoice %s: %w", msg.InvoiceNumber, err)
	}

	if msg.RecordID == "" || w.store == nil {
		return nil
	}
	status, err := w.recordStatus(ctx, msg.Owner, msg.RecordID)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to look up invoice record",
			log.FieldRecordID, msg.RecordID,
			log.FieldError, err)
		return nil
	}
	if status != core.StatusPending && status != core.StatusOverdue {
		w.logger.InfoContext(ctx, "Invoice status left unchanged",
			log.FieldRecordID, msg.RecordID,
			log.FieldStatus, string(status))
		return nil
	}
	if err := w.store.UpdateStatus(ctx, msg.RecordID, core.StatusSent); err != nil {
		// Delivery already happened; redelivering would send it twice.
		w.logger.ErrorContext(ctx, "Failed to mark invoice as sent",
			log.FieldRecordID, msg.RecordID,
			log.FieldError, err)
	}
	return nil
}

// recordStatus finds the current status of id among the owner's records.
func (w *NotifyWorker) recordStatus(ctx context.Context, owner, id string) (core.Status, error) {
	recs, err := w.store.ListRecords(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("list records: %w", err)
	}
	for _, r := range recs {
		if r.ID == id {
			return r.Status, nil
		}
	}
	return "", fmt.Errorf("%w: %s", core.ErrRecordNotFound, id)
}

// MarkOverdue flips pending and sent records whose due date has passed to
// overdue. It returns how many records changed.
func (w *NotifyWorker) MarkOverdue(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, nil
	}
	recs, err := w.store.ListRecords(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list records: %w", err)
	}

	today := w.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	changed := 0
	for _, r := range recs {
		if r.DueDate.IsEmpty() || !r.DueDate.Time.Before(today) {
			continue
		}
		if r.Status != core.StatusPending && r.Status != core.StatusSent {
			continue
		}
		if err := w.store.UpdateStatus(ctx, r.ID, core.StatusOverdue); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark invoice overdue",
				log.FieldRecordID, r.ID,
				log.FieldError, err)
			continue
		}
		changed++
	}
	if changed > 0 {
		w.logger.InfoContext(ctx, "Marked invoices overdue", "count", changed)
	}
	return changed, nil
}

// Run calls MarkOverdue on every tick until ctx is done.
func (w *NotifyWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.MarkOverdue(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Overdue check failed", log.FieldError, err)
			}
		}
	}
}
