// Package events delivers transaction mutation notifications off the
// request path.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

// Type names a kind of mutation.
type Type string

const (
	// TypeCreated is emitted after a transaction is added.
	TypeCreated Type = "transaction.created"
	// TypeUpdated is emitted after a transaction is updated.
	TypeUpdated Type = "transaction.updated"
	// TypeDeleted is emitted after a transaction is deleted.
	TypeDeleted Type = "transaction.deleted"
)

// Event describes one store mutation.
type Event struct {
	ID            string              `json:"id"`
	Type          Type                `json:"type"`
	TransactionID int64               `json:"transaction_id"`
	Transaction   *domain.Transaction `json:"transaction,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at"`
}

// New builds an event for tx with a fresh ID.
func New(typ Type, tx *domain.Transaction) Event {
	ev := Event{
		ID:         uuid.New().String(),
		Type:       typ,
		OccurredAt: time.Now().UTC(),
	}
	if tx != nil {
		ev.TransactionID = tx.ID
		ev.Transaction = tx.Clone()
	}
	return ev
}

// Publisher sends events to an external system.
type Publisher interface {
	// Publish delivers a single event.
	Publish(ctx context.Context, ev Event) error

	// Close flushes and releases resources.
	Close() error
}

// Emitter accepts events from request handlers. Emit must not block.
type Emitter interface {
	Emit(ev Event) bool
}

type discard struct{}

func (discard) Emit(Event) bool { return true }

// Discard is an Emitter that drops every event.
var Discard Emitter = discard{}
