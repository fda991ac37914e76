package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercadomaster/economy-engine/internal/metrics"
	"github.com/mercadomaster/economy-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) SaveState(ctx context.Context, profileID string, state model.UserState, journal ...model.Transaction) error {
	if err := s.primary.SaveState(ctx, profileID, state, journal...); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, stateKey(profileID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) LoadState(ctx context.Context, profileID string) (model.UserState, error) {
	data, err := s.rdb.Get(ctx, stateKey(profileID)).Bytes()
	if err == nil {
		if st, err := model.DecodeState(data); err == nil {
			metrics.StateCacheLookups.WithLabelValues("hit").Inc()
			return st, nil
		}
	}
	metrics.StateCacheLookups.WithLabelValues("miss").Inc()

	st, err := s.primary.LoadState(ctx, profileID)
	if err != nil {
		return model.UserState{}, err
	}

	if data, err := model.EncodeState(st); err == nil {
		s.rdb.Set(ctx, stateKey(profileID), data, s.ttl)
	}
	return st, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListTransactions(ctx context.Context, profileID string, limit int) ([]model.Transaction, error) {
	return s.primary.ListTransactions(ctx, profileID, limit)
}

func stateKey(profileID string) string { return fmt.Sprintf("state:%s", profileID) }
