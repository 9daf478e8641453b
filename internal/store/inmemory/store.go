package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dvloznov/momo-tracker/internal/domain"
	"github.com/dvloznov/momo-tracker/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use. Data is lost on restart; the store is
// rebuilt from the XML/JSON source at startup.
type Store struct {
	mu     sync.RWMutex
	txns   map[int64]*domain.Transaction
	order  []int64
	nextID int64
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory transaction store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		txns:   make(map[int64]*domain.Transaction),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load implements the store.Store interface.
func (s *Store) Load(ctx context.Context, records []domain.RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.insertLocked(domain.FromRaw(s.nextID, r))
	}

	return nil
}

// List implements the store.Store interface.
func (s *Store) List(ctx context.Context) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Transaction, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.txns[id].Clone())
	}

	return result, nil
}

// Get implements the store.Store interface with a map lookup.
func (s *Store) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.txns[id]
	if !exists {
		return nil, fmt.Errorf("get %d: %w", id, store.ErrNotFound)
	}

	return t.Clone(), nil
}

// LinearSearch implements the store.Store interface by scanning every
// record in insertion order.
func (s *Store) LinearSearch(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.order {
		if t := s.txns[key]; t.ID == id {
			return t.Clone(), nil
		}
	}

	return nil, fmt.Errorf("linear search %d: %w", id, store.ErrNotFound)
}

// Add implements the store.Store interface.
func (s *Store) Add(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if t == nil {
		return nil, fmt.Errorf("add: transaction is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := t.Clone()
	stored.ID = s.nextID
	stored.Timestamp = s.now().Format(domain.TimestampLayout)
	s.insertLocked(stored)

	return stored.Clone(), nil
}

// Update implements the store.Store interface.
func (s *Store) Update(ctx context.Context, id int64, p domain.Patch) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.txns[id]
	if !exists {
		return nil, fmt.Errorf("update %d: %w", id, store.ErrNotFound)
	}

	t.Apply(p)
	t.ID = id

	return t.Clone(), nil
}

// Delete implements the store.Store interface.
func (s *Store) Delete(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.txns[id]
	if !exists {
		return nil, fmt.Errorf("delete %d: %w", id, store.ErrNotFound)
	}

	delete(s.txns, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}

	return t, nil
}

// Len implements the store.Store interface.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txns)
}

// insertLocked stores t under its id and advances the counter.
// Callers must hold the write lock.
func (s *Store) insertLocked(t *domain.Transaction) {
	s.txns[t.ID] = t
	s.order = append(s.order, t.ID)
	s.nextID = t.ID + 1
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
