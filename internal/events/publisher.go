// Package events publishes the fire-and-forget domain events OPS and LDG
// emit after a successful commit (spec §6: "Publication is fire-and-forget:
// the operation must not fail if publication fails").
package events

import "context"

// Event is the envelope published on ledger.<type>.completed and
// wallet.<op>.completed topics.
type Event struct {
	Topic     string         `json:"-"`
	TenantID  string         `json:"tenantId"`
	UserID    string         `json:"userId,omitempty"`
	Currency  string         `json:"currency"`
	Amount    int64          `json:"amount"`
	AccountID string         `json:"accountId,omitempty"`
	TxID      string         `json:"txId,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Publisher publishes events without ever failing the caller's operation:
// implementations log and swallow delivery errors internally.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// NoopPublisher discards every event; used in tests and as a safe zero value.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) {}
