package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicer/internal/core"
)

var ErrInvalidMessage = errors.New("invalid notify message")

// NotifyMessage asks the delivery worker to send a rendered invoice to the
// client. The artifact travels inside the message, base64 encoded by JSON.
type NotifyMessage struct {
	RecordID      string          `json:"record_id,omitempty"`
	Owner         string          `json:"owner,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientName    string          `json:"client_name"`
	ClientEmail   string          `json:"client_email"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	ArtifactName  string          `json:"artifact_name"`
	Artifact      []byte          `json:"artifact"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Validate checks the fields a deliverer cannot work without.
func (m *NotifyMessage) Validate() error {
	switch {
	case strings.TrimSpace(m.InvoiceNumber) == "":
		return errors.Join(ErrInvalidMessage, errors.New("missing invoice number"))
	case strings.TrimSpace(m.ClientEmail) == "":
		return errors.Join(ErrInvalidMessage, errors.New("missing client email"))
	case core.ValidateEmail(m.ClientEmail) != nil:
		return errors.Join(ErrInvalidMessage, core.ValidateEmail(m.ClientEmail))
	case len(m.Artifact) == 0:
		return errors.Join(ErrInvalidMessage, errors.New("missing artifact"))
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *NotifyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotifyMessageFromJSON creates a message from JSON bytes
func NotifyMessageFromJSON(data []byte) (*NotifyMessage, error) {
	var msg NotifyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
