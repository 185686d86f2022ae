package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines subscription persistence. TenantID is the primary key.
//
// Save is a conditional update: it succeeds only when the stored status
// still equals expectedStatus, returning ErrStale otherwise. Combined with
// the ledger's idempotency key this makes every mutation path safe under
// concurrent, duplicated webhook deliveries without read-then-write races.
type Store interface {
	// Get retrieves a subscription by tenant ID.
	// Returns ErrNotFound if no subscription exists.
	Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// Create inserts a new subscription.
	// Returns ErrAlreadyExists if the tenant already has one.
	Create(ctx context.Context, sub *Subscription) error

	// Save updates a subscription only if its stored status still equals
	// expectedStatus. Returns ErrStale when a concurrent writer won, and
	// ErrNotFound when the row is missing.
	Save(ctx context.Context, sub *Subscription, expectedStatus Status) error

	// ListActiveEndedBefore returns active subscriptions whose period ended
	// before the cutoff, up to limit rows. Used by the overdue-cure and
	// expiry background jobs.
	ListActiveEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]Subscription, error)
}
