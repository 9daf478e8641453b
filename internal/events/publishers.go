package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher publishes events as JSON on <subject>.<action>,
// e.g. momo.transactions.created.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("momo-api"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %q: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(ev Event) string {
	return p.subject + "." + strings.TrimPrefix(string(ev.Type), "transaction.")
}

// Publish implements the Publisher interface.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(ev), data); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	return nil
}

// Close implements the Publisher interface.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// LogPublisher writes events to a zerolog logger. Used when no broker is
// configured.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a publisher that logs each event.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish implements the Publisher interface.
func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.log.Info().
		Str("event_id", ev.ID).
		Str("event_type", string(ev.Type)).
		Int64("transaction_id", ev.TransactionID).
		Time("occurred_at", ev.OccurredAt).
		Msg("Transaction event")
	return nil
}

// Close implements the Publisher interface.
func (p *LogPublisher) Close() error {
	return nil
}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
