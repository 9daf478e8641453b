// Package store defines the transaction store contract.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

// ErrNotFound is returned when no transaction exists for the requested id.
var ErrNotFound = errors.New("transaction not found")

// Store owns transaction identity and the id -> record mapping.
// Implementations must serialize mutations against each other and
// against reads of the mapping.
type Store interface {
	// Load seeds the store from loader output, assigning ids in input order.
	// It must complete before request traffic starts.
	Load(ctx context.Context, records []domain.RawRecord) error

	// List returns every stored transaction in insertion order.
	List(ctx context.Context) ([]*domain.Transaction, error)

	// Get looks a transaction up by key.
	Get(ctx context.Context, id int64) (*domain.Transaction, error)

	// LinearSearch returns the same result as Get using a full scan.
	LinearSearch(ctx context.Context, id int64) (*domain.Transaction, error)

	// Add assigns the next id and the current timestamp, then inserts.
	Add(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)

	// Update merges the patch into an existing record. The id never changes.
	Update(ctx context.Context, id int64, p domain.Patch) (*domain.Transaction, error)

	// Delete removes the record and returns it. Deleted ids are never reused.
	Delete(ctx context.Context, id int64) (*domain.Transaction, error)

	// Len returns the number of live records.
	Len() int
}
