package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/plan"
)

// saveRetries bounds the compare-and-save loop for administrative writes.
// Webhook reconciliation has its own retry policy in the reconciler.
const saveRetries = 3

// Service exposes the explicit, non-event-driven subscription operations:
// tenant signup, administrative plan changes, and operator block/unblock.
// Payment-driven transitions go through the reconciler instead.
type Service struct {
	store   Store
	catalog *plan.Catalog
	log     *slog.Logger
}

// NewService creates the administrative subscription service.
// Panics on nil dependencies to fail fast during initialization.
func NewService(store Store, catalog *plan.Catalog, log *slog.Logger) *Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if catalog == nil {
		panic("subscription: plan catalog is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, catalog: catalog, log: log}
}

// Register creates the implicit trial subscription for a new tenant on the
// smallest public plan. Safe to call twice: an existing subscription is
// returned unchanged.
func (s *Service) Register(ctx context.Context, tenantID uuid.UUID, now time.Time) (*Subscription, error) {
	sub := NewTrial(tenantID, s.catalog.FindSuitable(0).ID, now)
	if err := s.store.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return s.store.Get(ctx, tenantID)
		}
		return nil, err
	}

	s.log.InfoContext(ctx, "trial subscription created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("plan_id", sub.PlanID))
	return sub, nil
}

// UpdatePlan switches the tenant to another plan. The plan must exist in
// the catalog; unknown IDs are rejected before any state mutation.
func (s *Service) UpdatePlan(ctx context.Context, tenantID uuid.UUID, planID string) (*Subscription, error) {
	if _, err := s.catalog.Lookup(planID); err != nil {
		return nil, err
	}

	return s.mutate(ctx, tenantID, func(sub *Subscription) {
		sub.PlanID = planID
	})
}

// Block forces the subscription to cancelled, bypassing the payment
// lattice. Operator intervention only.
func (s *Service) Block(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	now := time.Now().UTC()
	return s.mutate(ctx, tenantID, func(sub *Subscription) {
		sub.Status = StatusCancelled
		sub.CancelledAt = &now
	})
}

// Unblock returns a blocked tenant to trial, the same state a fresh signup
// gets. A subsequent payment event re-activates as usual.
func (s *Service) Unblock(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	return s.mutate(ctx, tenantID, func(sub *Subscription) {
		sub.Status = StatusTrial
		sub.CancelledAt = nil
		sub.CurrentPeriodEnd = time.Time{}
	})
}

// Expire transitions a long-overdue active subscription to expired.
// Called by the expiry background job; a concurrent renewal wins the race
// via the conditional save and the expiry is dropped.
func (s *Service) Expire(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.mutate(ctx, tenantID, func(sub *Subscription) {
		if sub.Status == StatusActive {
			sub.Status = StatusExpired
		}
	})
	if errors.Is(err, ErrStale) {
		// Renewed while we were expiring it; nothing to do.
		return nil
	}
	return err
}

// mutate loads, edits and conditionally saves a subscription, retrying a
// bounded number of times when a concurrent writer changed the status.
func (s *Service) mutate(ctx context.Context, tenantID uuid.UUID, edit func(*Subscription)) (*Subscription, error) {
	var lastErr error
	for range saveRetries {
		sub, err := s.store.Get(ctx, tenantID)
		if err != nil {
			return nil, err
		}

		expected := sub.Status
		edit(sub)
		sub.UpdatedAt = time.Now().UTC()

		if err := s.store.Save(ctx, sub, expected); err != nil {
			if errors.Is(err, ErrStale) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return sub, nil
	}
	return nil, lastErr
}
