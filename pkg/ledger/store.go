package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChargeStore persists the charge ledger.
type ChargeStore interface {
	// Record inserts the charge unless a row with the same
	// (provider, external event ID) already exists. The returned bool
	// reports whether this call inserted the row; false means the event
	// was already claimed and the stored row is authoritative.
	Record(ctx context.Context, charge *Charge) (bool, error)

	// GetByEventID retrieves a charge by its idempotency key.
	// Returns ErrChargeNotFound if the event was never recorded.
	GetByEventID(ctx context.Context, provider, externalEventID string) (*Charge, error)

	// Settle replaces the status of a recorded charge, moving a pending
	// claim to its final status. Settling a missing row returns
	// ErrChargeNotFound.
	Settle(ctx context.Context, provider, externalEventID string, status ChargeStatus) error

	// SummarizePeriod aggregates a tenant's charges with CreatedAt in
	// [start, end): refunded rows subtract from the total.
	SummarizePeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (PeriodTotals, error)
}

// PendingStore persists pending activations keyed by email.
type PendingStore interface {
	// Put stores or replaces the pending activation for its email.
	Put(ctx context.Context, pending *PendingActivation) error

	// GetByEmail retrieves the pending activation for an email.
	// Returns ErrPendingNotFound when there is none.
	GetByEmail(ctx context.Context, email string) (*PendingActivation, error)

	// Delete removes the pending activation for an email. Deleting a
	// missing record is not an error; claims race benignly.
	Delete(ctx context.Context, email string) error
}
