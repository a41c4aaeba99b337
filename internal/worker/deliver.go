package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"invoicer/internal/amqp"
	"invoicer/internal/core"
	"invoicer/internal/log"
)

// LogDeliverer only records that a delivery was requested.
type LogDeliverer struct {
	Logger *log.Logger
}

func (d LogDeliverer) Deliver(ctx context.Context, msg *amqp.NotifyMessage) error {
	logger := d.Logger
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	logger.InfoContext(ctx, "Invoice delivered",
		log.FieldInvoiceNumber, msg.InvoiceNumber,
		"recipient", msg.ClientEmail,
		log.FieldAmount, core.FormatCurrency(msg.Currency, msg.Total),
		log.FieldArtifact, msg.ArtifactName,
		log.FieldArtifactBytes, len(msg.Artifact))
	return nil
}

// ErrUnsafeRecipient reports a recipient that cannot be used as an outbox
// directory name.
var ErrUnsafeRecipient = errors.New("recipient is not a safe outbox directory name")

// OutboxDeliverer writes each artifact into a directory, one subdirectory
// per recipient, for pickup by a mail relay. Nothing is written outside Dir.
type OutboxDeliverer struct {
	Dir string
}

func (d OutboxDeliverer) Deliver(_ context.Context, msg *amqp.NotifyMessage) error {
	if !safeName(msg.ClientEmail) {
		return fmt.Errorf("%w: %q", ErrUnsafeRecipient, msg.ClientEmail)
	}
	root, err := filepath.Abs(d.Dir)
	if err != nil {
		return fmt.Errorf("resolve outbox: %w", err)
	}
	dir := filepath.Join(root, msg.ClientEmail)
	name := filepath.Base(msg.ArtifactName)
	if !safeName(name) {
		name = "invoice.bin"
	}
	target := filepath.Join(dir, name)
	if !within(root, target) {
		return fmt.Errorf("%w: %q", ErrUnsafeRecipient, msg.ClientEmail)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, msg.Artifact, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return os.Rename(tmp, target)
}

// safeName accepts a single path element.
func safeName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`+"\x00")
}

// within reports whether path lies strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
