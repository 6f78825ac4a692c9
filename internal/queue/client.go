package queue

import (
	"context"
	"sync"

	"invoice-backend/internal/shared/telemetry"
)

// DefaultMemoryRetention is how many events a dev MemoryClient keeps.
const DefaultMemoryRetention = 1000

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// MemoryClient keeps the most recent events in process and logs each one.
// Bootstrap uses it in dev when no queue URL is configured. A zero Retain
// keeps everything.
type MemoryClient struct {
	Retain int

	mu   sync.Mutex
	msgs []Message
}

// NewMemoryClient keeps at most retain events.
func NewMemoryClient(retain int) *MemoryClient {
	return &MemoryClient{Retain: retain}
}

// Send appends msg, evicting the oldest event past Retain.
func (m *MemoryClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.msgs = append(m.msgs, msg)
	if m.Retain > 0 && len(m.msgs) > m.Retain {
		m.msgs = append(m.msgs[:0:0], m.msgs[len(m.msgs)-m.Retain:]...)
	}
	m.mu.Unlock()

	telemetry.Info("queue.event", map[string]any{
		"event_id":   msg.EventID,
		"type":       msg.Type,
		"invoice_id": msg.InvoiceID,
		"status":     msg.Status,
	})
	return nil
}

// Messages returns a copy of the retained messages, oldest first.
func (m *MemoryClient) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.msgs...)
}
