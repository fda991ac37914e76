// Package store defines the persistence interface for the economy engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// The user state is saved as one JSON document per profile. Trades are also
// appended to an immutable journal in the same write.
package store

import (
	"context"
	"errors"

	"github.com/mercadomaster/economy-engine/internal/model"
)

// ErrNotFound is returned when no document exists for a profile.
var ErrNotFound = errors.New("store: profile not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// LoadState returns the saved state for profileID, or ErrNotFound.
	LoadState(ctx context.Context, profileID string) (model.UserState, error)

	// SaveState replaces the profile's document and appends journal to the
	// transaction journal. Either both are written or neither is.
	SaveState(ctx context.Context, profileID string, state model.UserState, journal ...model.Transaction) error

	// ListTransactions returns up to limit journal entries, newest first.
	// limit <= 0 returns everything.
	ListTransactions(ctx context.Context, profileID string, limit int) ([]model.Transaction, error)
}
