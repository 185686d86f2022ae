package subscription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store for tests and local development.
// The mutex makes Save an atomic compare-and-save, mirroring the
// conditional UPDATE the Postgres store issues.
type memStore struct {
	mu   sync.Mutex
	subs map[uuid.UUID]Subscription
}

// NewMemStore returns an empty in-memory subscription store.
func NewMemStore() Store {
	return &memStore{subs: make(map[uuid.UUID]Subscription)}
}

func (s *memStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &sub, nil
}

func (s *memStore) Create(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.TenantID]; exists {
		return ErrAlreadyExists
	}
	s.subs[sub.TenantID] = *sub
	return nil
}

func (s *memStore) Save(ctx context.Context, sub *Subscription, expectedStatus Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.subs[sub.TenantID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expectedStatus {
		return ErrStale
	}
	s.subs[sub.TenantID] = *sub
	return nil
}

func (s *memStore) ListActiveEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Oldest first, like the Postgres ORDER BY: truncating a random map
	// order under a backlog bigger than the limit would starve rows.
	out := make([]Subscription, 0)
	for _, sub := range s.subs {
		if sub.Status == StatusActive && sub.CurrentPeriodEnd.Before(cutoff) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CurrentPeriodEnd.Before(out[j].CurrentPeriodEnd)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
