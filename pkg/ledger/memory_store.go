package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memChargeStore struct {
	mu      sync.Mutex
	charges map[string]Charge // keyed by provider + "\x00" + event ID
}

// NewMemChargeStore returns an in-memory ChargeStore for tests and local
// development. Record is atomic under the mutex, mirroring the Postgres
// ON CONFLICT DO NOTHING insert.
func NewMemChargeStore() ChargeStore {
	return &memChargeStore{charges: make(map[string]Charge)}
}

func chargeKey(provider, eventID string) string {
	return provider + "\x00" + eventID
}

func (s *memChargeStore) Record(ctx context.Context, charge *Charge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chargeKey(charge.Provider, charge.ExternalEventID)
	if _, exists := s.charges[key]; exists {
		return false, nil
	}
	s.charges[key] = *charge
	return true, nil
}

func (s *memChargeStore) Settle(ctx context.Context, provider, externalEventID string, status ChargeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := chargeKey(provider, externalEventID)
	charge, ok := s.charges[key]
	if !ok {
		return ErrChargeNotFound
	}
	charge.Status = status
	s.charges[key] = charge
	return nil
}

func (s *memChargeStore) GetByEventID(ctx context.Context, provider, externalEventID string) (*Charge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	charge, ok := s.charges[chargeKey(provider, externalEventID)]
	if !ok {
		return nil, ErrChargeNotFound
	}
	return &charge, nil
}

func (s *memChargeStore) SummarizePeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (PeriodTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var totals PeriodTotals
	for _, c := range s.charges {
		if c.TenantID != tenantID {
			continue
		}
		if c.CreatedAt.Before(start) || !c.CreatedAt.Before(end) {
			continue
		}
		totals.ChargeCount++
		if c.Status == ChargeStatusRefunded {
			totals.TotalAmount -= c.Amount.Amount
		} else {
			totals.TotalAmount += c.Amount.Amount
		}
		if totals.Currency == "" {
			totals.Currency = c.Amount.Currency
		}
	}
	return totals, nil
}

type memPendingStore struct {
	mu      sync.Mutex
	pending map[string]PendingActivation
}

// NewMemPendingStore returns an in-memory PendingStore.
func NewMemPendingStore() PendingStore {
	return &memPendingStore{pending: make(map[string]PendingActivation)}
}

func (s *memPendingStore) Put(ctx context.Context, pending *PendingActivation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[strings.ToLower(pending.Email)] = *pending
	return nil
}

func (s *memPendingStore) GetByEmail(ctx context.Context, email string) (*PendingActivation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[strings.ToLower(email)]
	if !ok {
		return nil, ErrPendingNotFound
	}
	return &p, nil
}

func (s *memPendingStore) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, strings.ToLower(email))
	return nil
}
