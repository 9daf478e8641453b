package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// QueueConfig sizes the queue and its retry policy.
type QueueConfig struct {
	BufferSize int
	Workers    int
	MaxRetries uint64

	// NewBackOff builds the retry schedule for one delivery.
	// Defaults to exponential backoff.
	NewBackOff func() backoff.BackOff
}

// Queue is an in-memory event queue. Handlers Emit without blocking and a
// fixed pool of workers hands events to the Publisher, retrying failures.
type Queue struct {
	events    chan Event
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	started   bool

	publisher Publisher
	cfg       QueueConfig
	log       zerolog.Logger
}

// NewQueue creates a queue delivering to publisher.
func NewQueue(cfg QueueConfig, publisher Publisher, log zerolog.Logger) *Queue {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}

	return &Queue{
		events:    make(chan Event, cfg.BufferSize),
		closeChan: make(chan struct{}),
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Emit implements the Emitter interface. It returns false when the queue
// is closed or full; the event is dropped in that case.
func (q *Queue) Emit(ev Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.events <- ev:
		return true
	default:
		q.log.Warn().
			Str("event_id", ev.ID).
			Str("event_type", string(ev.Type)).
			Int64("transaction_id", ev.TransactionID).
			Msg("Event queue full, dropping event")
		return false
	}
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if q.started {
		return fmt.Errorf("queue already started")
	}
	q.started = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			q.drain(ctx)
			return
		case ev := <-q.events:
			q.deliver(ctx, ev)
		}
	}
}

// drain delivers whatever is still buffered after Stop.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case ev := <-q.events:
			q.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, ev Event) {
	attempt := 0
	op := func() error {
		attempt++
		return q.publisher.Publish(ctx, ev)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(q.cfg.NewBackOff(), q.cfg.MaxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		q.log.Error().
			Err(err).
			Str("event_id", ev.ID).
			Str("event_type", string(ev.Type)).
			Int64("transaction_id", ev.TransactionID).
			Int("attempts", attempt).
			Msg("Event delivery failed")
		return
	}

	q.log.Debug().
		Str("event_id", ev.ID).
		Str("event_type", string(ev.Type)).
		Int("attempts", attempt).
		Msg("Event delivered")
}

// Stop rejects new events, delivers buffered ones and waits for workers.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue and closes the publisher. After a Stop that hit
// its deadline it only closes the publisher.
func (q *Queue) Close() error {
	if err := q.Stop(context.Background()); err != nil {
		return err
	}
	return q.publisher.Close()
}

// Ensure Queue implements the Emitter interface.
var _ Emitter = (*Queue)(nil)
