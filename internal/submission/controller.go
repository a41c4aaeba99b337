// Package submission gates the two terminal actions of a composition
// session: exporting the rendered document and handing it off for
// delivery by email.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/invoice"
	"invoicer/internal/layout"
	"invoicer/internal/log"
	"invoicer/internal/records"
)

var ErrNotifierUnavailable = errors.New("notification delivery is not configured")

const maxDescription = 500

type (
	// Renderer produces the artifact bytes for a composed invoice.
	Renderer func(layout.Input) ([]byte, error)

	// Notifier hands a rendered invoice to the delivery collaborator.
	Notifier interface {
		PublishNotify(ctx context.Context, msg amqp.NotifyMessage) error
	}

	// Records is what the controller needs from the record backend. A
	// record saved for a notify that could not be published is deleted.
	Records interface {
		records.RecordWriter
		records.RecordDeleter
	}

	Options struct {
		// Currency is the symbol used when the owner has no profile.
		Currency string
		Paper    layout.PaperSize
		// Profiles supplies the issuer block and currency per owner.
		Profiles records.ProfileReader
		// Render defaults to layout.RenderPDF.
		Render      Renderer
		ContentType string
		Extension   string
	}

	Artifact struct {
		Name        string
		ContentType string
		Data        []byte
		Total       decimal.Decimal
		// Currency is the symbol the document was rendered with.
		Currency string
		// RecordID is empty when the record could not be saved.
		RecordID string
	}
)

// Controller validates and dispatches export and notify requests. Records
// and notifier are optional collaborators.
type Controller struct {
	opts     Options
	records  Records
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

func NewController(opts Options, rs Records, n Notifier, logger *log.Logger) *Controller {
	if opts.Render == nil {
		opts.Render = layout.RenderPDF
		opts.ContentType = "application/pdf"
		opts.Extension = "pdf"
	}
	if opts.Currency == "" {
		opts.Currency = "$"
	}
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Controller{
		opts:     opts,
		records:  rs,
		notifier: n,
		logger:   logger.WithComponent(log.ComponentSubmission),
		now:      time.Now,
	}
}

// Validate is the pre-flight check shared by export and notify.
func (c *Controller) Validate(h core.Header) error {
	return h.Validate()
}

// Export renders the invoice and records it as pending. A failed record
// save is logged and does not fail the export.
func (c *Controller) Export(ctx context.Context, owner string, snap invoice.Snapshot) (Artifact, error) {
	if err := c.Validate(snap.Header); err != nil {
		return Artifact{}, err
	}
	art, err := c.render(ctx, owner, snap)
	if err != nil {
		return Artifact{}, err
	}

	if c.records != nil {
		id, err := c.records.Save(ctx, c.record(owner, snap))
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to save invoice record",
				log.NewFields().
					WithInvoice(snap.Header.InvoiceNumber, snap.Header.ClientName, snap.Total.StringFixed(2)).
					WithOperation(log.OpSave).
					WithError(err).
					ToSlice()...)
		} else {
			art.RecordID = id
		}
	}

	log.NewStructuredLogger(c.logger).LogInvoiceExported(ctx,
		snap.Header.InvoiceNumber, snap.Header.ClientName, snap.Total.StringFixed(2), art.Name)
	return art, nil
}

// Notify validates, renders and publishes a delivery request. Delivery
// itself happens elsewhere. When publishing fails the pending record saved
// for the message is deleted again.
func (c *Controller) Notify(ctx context.Context, owner string, snap invoice.Snapshot) error {
	if err := c.Validate(snap.Header); err != nil {
		return err
	}
	if strings.TrimSpace(snap.Header.ClientEmail) == "" {
		return &core.ValidationError{Field: "clientEmail", Err: core.ErrMissingClientEmail}
	}
	if err := core.ValidateEmail(snap.Header.ClientEmail); err != nil {
		return &core.ValidationError{Field: "clientEmail", Err: err}
	}
	if c.notifier == nil {
		return ErrNotifierUnavailable
	}
	art, err := c.render(ctx, owner, snap)
	if err != nil {
		return err
	}

	var recordID string
	if c.records != nil {
		rec := c.record(owner, snap)
		if id, err := c.records.Save(ctx, rec); err != nil {
			c.logger.WarnContext(ctx, "Failed to save invoice record before notify",
				log.FieldInvoiceNumber, snap.Header.InvoiceNumber, log.FieldError, err)
		} else {
			recordID = id
		}
	}

	msg := amqp.NotifyMessage{
		RecordID:      recordID,
		Owner:         owner,
		InvoiceNumber: snap.Header.InvoiceNumber,
		ClientName:    snap.Header.ClientName,
		ClientEmail:   snap.Header.ClientEmail,
		Total:         snap.Total,
		Currency:      art.Currency,
		ArtifactName:  art.Name,
		Artifact:      art.Data,
		Timestamp:     c.now().UTC(),
	}
	if err := c.notifier.PublishNotify(ctx, msg); err != nil {
		c.discard(ctx, recordID)
		return fmt.Errorf("publish notify: %w", err)
	}
	c.logger.InfoContext(ctx, "Invoice queued for delivery",
		log.FieldInvoiceNumber, msg.InvoiceNumber,
		log.FieldRecordID, recordID,
		log.FieldArtifact, msg.ArtifactName)
	return nil
}

// discard deletes a record whose notify was never published.
func (c *Controller) discard(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := c.records.Delete(ctx, id); err != nil {
		c.logger.ErrorContext(ctx, "Failed to delete record of unpublished notify",
			log.FieldRecordID, id, log.FieldError, err)
	}
}

// input builds the layout input, taking the issuer block and currency from
// the owner's profile when there is one. A failed lookup renders without it.
func (c *Controller) input(ctx context.Context, owner string, snap invoice.Snapshot) layout.Input {
	in := layout.FromSnapshot(snap, c.opts.Currency, c.opts.Paper)
	if c.opts.Profiles == nil {
		return in
	}
	p, err := c.opts.Profiles.GetProfile(ctx, owner)
	if err != nil {
		if !errors.Is(err, core.ErrProfileNotFound) {
			c.logger.WarnContext(ctx, "Failed to load company profile",
				log.FieldOwner, owner, log.FieldError, err)
		}
		return in
	}
	in.Issuer = p
	if sym := core.CurrencySymbol(p.Currency); sym != "" {
		in.Currency = sym
	}
	return in
}

func (c *Controller) render(ctx context.Context, owner string, snap invoice.Snapshot) (Artifact, error) {
	in := c.input(ctx, owner, snap)
	data, err := c.opts.Render(in)
	if err != nil {
		return Artifact{}, fmt.Errorf("render invoice %s: %w", snap.Header.InvoiceNumber, err)
	}
	return Artifact{
		Name:        layout.ArtifactName(snap.Header.InvoiceNumber, c.opts.Extension),
		ContentType: c.opts.ContentType,
		Data:        data,
		Total:       snap.Total,
		Currency:    in.Currency,
	}, nil
}

func (c *Controller) record(owner string, snap invoice.Snapshot) core.Record {
	h := snap.Header
	date := h.IssueDate
	if date.IsEmpty() {
		now := c.now().UTC()
		date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}
	return core.Record{
		Owner:         owner,
		InvoiceNumber: h.InvoiceNumber,
		ClientName:    h.ClientName,
		ClientEmail:   h.ClientEmail,
		Amount:        snap.Total,
		Description:   describe(snap.Items),
		Category:      h.Category,
		Status:        core.StatusPending,
		Date:          date,
		DueDate:       h.DueDate,
	}
}

// describe joins the non-empty item descriptions for the record summary.
func describe(items []core.LineItem) string {
	var parts []string
	for _, it := range items {
		if d := strings.TrimSpace(it.Description); d != "" {
			parts = append(parts, d)
		}
	}
	s := strings.Join(parts, ", ")
	if r := []rune(s); len(r) > maxDescription {
		s = string(r[:maxDescription-3]) + "..."
	}
	return s
}
