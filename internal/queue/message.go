package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published for downstream consumers.
const (
	EventInvoiceIngested      = "invoice.ingested"
	EventInvoiceStatusChanged = "invoice.status_changed"
)

// Message is the payload sent to downstream queue consumers.
type Message struct {
	EventID    string `json:"eventId"`
	Type       string `json:"type"`
	InvoiceID  string `json:"invoiceId"`
	UserID     string `json:"userId,omitempty"`
	Status     string `json:"status"`
	ApprovedBy string `json:"approvedBy,omitempty"`
	OccurredAt string `json:"occurredAt"`
	Version    int    `json:"version"`
}

// NewMessage stamps a fresh event ID and timestamp.
func NewMessage(eventType, invoiceID, status string, at time.Time) Message {
	return Message{
		EventID:    uuid.NewString(),
		Type:       eventType,
		InvoiceID:  invoiceID,
		Status:     status,
		OccurredAt: at.UTC().Format(time.RFC3339Nano),
		Version:    1,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
