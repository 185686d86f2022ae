package reconciler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/ledger"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

// saveRetries bounds the compare-and-save loop when concurrent webhook
// deliveries race on the same tenant.
const saveRetries = 3

// TenantDirectory resolves a customer email to a registered tenant.
type TenantDirectory interface {
	// FindByEmail returns the tenant owning the email.
	// Returns ErrTenantNotFound when no tenant matches; that is not a
	// failure, it routes the event to a pending activation.
	FindByEmail(ctx context.Context, email string) (uuid.UUID, error)
}

// Result is what a webhook endpoint reports back to the provider.
type Result struct {
	Action    subscription.Action `json:"action"`
	Status    subscription.Status `json:"status,omitempty"`
	Duplicate bool                `json:"duplicate,omitempty"`
	Pending   bool                `json:"pending,omitempty"`
}

// Reconciler applies normalized payment events to the subscription state
// store and the charge ledger.
type Reconciler struct {
	subs    subscription.Store
	charges ledger.ChargeStore
	pending ledger.PendingStore
	tenants TenantDirectory
	dedupe  DedupeCache // optional fast-path, ledger stays authoritative
	log     *slog.Logger
}

// Option configures optional reconciler collaborators.
type Option func(*Reconciler)

// WithDedupeCache installs a cache consulted before the ledger to
// short-circuit obvious redeliveries. Cache failures are ignored.
func WithDedupeCache(cache DedupeCache) Option {
	return func(r *Reconciler) { r.dedupe = cache }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a reconciler. Panics on nil required dependencies to fail
// fast during initialization.
func New(subs subscription.Store, charges ledger.ChargeStore, pending ledger.PendingStore, tenants TenantDirectory, opts ...Option) *Reconciler {
	if subs == nil {
		panic("reconciler: subscription store is required")
	}
	if charges == nil {
		panic("reconciler: charge store is required")
	}
	if pending == nil {
		panic("reconciler: pending store is required")
	}
	if tenants == nil {
		panic("reconciler: tenant directory is required")
	}

	r := &Reconciler{
		subs:    subs,
		charges: charges,
		pending: pending,
		tenants: tenants,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process applies one normalized event. It completes synchronously and is
// safe to call concurrently with redeliveries of the same event: the
// ledger upsert claims the event ID, so at most one transition takes
// effect per event. A delivery that claimed the event but failed before
// settling leaves a pending ledger row, and the next redelivery finishes
// the transition instead of reporting a duplicate.
func (r *Reconciler) Process(ctx context.Context, event Event) (Result, error) {
	if err := event.Validate(); err != nil {
		return Result{}, err
	}

	action := ActionFor(event.Type)
	if action == subscription.ActionNone {
		r.log.InfoContext(ctx, "ignoring payment event",
			slog.String("provider", event.Provider),
			slog.String("event_type", string(event.Type)))
		return Result{Action: subscription.ActionNone}, nil
	}

	// Fast-path dedupe; the ledger below is the authoritative check.
	if r.dedupe != nil {
		if seen, err := r.dedupe.Seen(ctx, event.Provider, event.ExternalEventID); err == nil && seen {
			if res, ok := r.recordedResult(ctx, event); ok {
				return res, nil
			}
		}
	}

	if charge, err := r.charges.GetByEventID(ctx, event.Provider, event.ExternalEventID); err == nil {
		if charge.Status == ledger.ChargeStatusPending {
			// A prior delivery claimed the event but crashed before the
			// transition settled. The charge row carries the tenant, so
			// this redelivery can finish the work.
			return r.completeClaim(ctx, charge, event)
		}
		return r.duplicateResult(ctx, charge), nil
	} else if !errors.Is(err, ledger.ErrChargeNotFound) {
		return Result{}, err
	}

	email := normalizeEmail(event.CustomerEmail)
	tenantID, err := r.tenants.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrTenantNotFound) {
			return Result{}, err
		}
		return r.deferOrDrop(ctx, event, action, email)
	}

	res, err := r.ApplyForTenant(ctx, tenantID, event)
	if err != nil {
		return Result{}, err
	}

	if r.dedupe != nil && !res.Duplicate {
		// Best effort; a lost mark only costs one extra ledger lookup.
		_ = r.dedupe.MarkSeen(ctx, event.Provider, event.ExternalEventID)
	}
	return res, nil
}

// ApplyForTenant reconciles an event whose tenant is already known,
// skipping email resolution. Scheduled jobs that synthesize events from
// provider API polls use this; the ledger claim still makes each event ID
// apply at most once.
func (r *Reconciler) ApplyForTenant(ctx context.Context, tenantID uuid.UUID, event Event) (Result, error) {
	if err := event.Validate(); err != nil {
		return Result{}, err
	}

	action := ActionFor(event.Type)
	if action == subscription.ActionNone {
		return Result{Action: subscription.ActionNone}, nil
	}

	// Claim the event before transitioning: the unique ledger key is what
	// guarantees at most one effect per event ID under concurrent retries.
	// The claim is recorded as pending and settled only after the
	// transition is durable, so a crash in between leaves a pending row
	// that the next redelivery completes instead of short-circuiting.
	inserted, err := r.charges.Record(ctx, &ledger.Charge{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Provider:        event.Provider,
		ExternalEventID: event.ExternalEventID,
		Action:          action,
		Amount:          event.Amount,
		Status:          ledger.ChargeStatusPending,
		CreatedAt:       event.OccurredAt.UTC(),
	})
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		charge, err := r.charges.GetByEventID(ctx, event.Provider, event.ExternalEventID)
		if err != nil {
			return Result{}, err
		}
		if charge.Status == ledger.ChargeStatusPending {
			return r.completeClaim(ctx, charge, event)
		}
		return r.duplicateResult(ctx, charge), nil
	}

	status, err := r.applyTransition(ctx, tenantID, action, event)
	if err != nil {
		return Result{}, err
	}
	if err := r.charges.Settle(ctx, event.Provider, event.ExternalEventID, ledger.StatusForAction(action)); err != nil {
		return Result{}, err
	}

	r.log.InfoContext(ctx, "payment event reconciled",
		slog.String("provider", event.Provider),
		slog.String("event_type", string(event.Type)),
		slog.String("action", string(action)),
		slog.String("tenant_id", tenantID.String()),
		slog.String("status", string(status)))

	return Result{Action: action, Status: status}, nil
}

// ClaimPending consumes the pending activation for an email, if any,
// activating the tenant's subscription. Called when a tenant registers.
func (r *Reconciler) ClaimPending(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	p, err := r.pending.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ledger.ErrPendingNotFound) {
			return false, nil
		}
		return false, err
	}

	// The order ID keys the claim charge: replaying a claim after a crash
	// finds the row already recorded and does not double-charge. The
	// pending-then-settle dance matches ApplyForTenant, so a replay after
	// a half-applied claim re-runs the transition instead of skipping it.
	claimEventID := "claim:" + p.ExternalOrderID
	claimEvent := Event{
		Provider:        p.Provider,
		ExternalEventID: claimEventID,
		ExternalSubID:   p.ExternalSubID,
		ExternalOrderID: p.ExternalOrderID,
		PlanID:          p.PlanID,
		OccurredAt:      p.CreatedAt,
	}
	inserted, err := r.charges.Record(ctx, &ledger.Charge{
		ID:              uuid.New(),
		TenantID:        tenantID,
		Provider:        p.Provider,
		ExternalEventID: claimEventID,
		Action:          subscription.ActionActivate,
		Amount:          p.Amount,
		Status:          ledger.ChargeStatusPending,
		CreatedAt:       p.CreatedAt,
	})
	if err != nil {
		return false, err
	}

	applied := inserted
	if !inserted {
		charge, err := r.charges.GetByEventID(ctx, p.Provider, claimEventID)
		if err != nil {
			return false, err
		}
		applied = charge.Status == ledger.ChargeStatusPending
	}
	if applied {
		if _, err := r.applyTransition(ctx, tenantID, subscription.ActionActivate, claimEvent); err != nil {
			return false, err
		}
		if err := r.charges.Settle(ctx, p.Provider, claimEventID, ledger.ChargeStatusSucceeded); err != nil {
			return false, err
		}
	}

	if err := r.pending.Delete(ctx, p.Email); err != nil {
		return false, err
	}

	r.log.InfoContext(ctx, "pending activation claimed",
		slog.String("tenant_id", tenantID.String()),
		slog.String("provider", p.Provider),
		slog.String("order_id", p.ExternalOrderID))
	return true, nil
}

// deferOrDrop handles events whose email matches no tenant. Activations
// and renewals park as pending activations (the renewal proves an
// upstream subscription exists); deactivations have nothing to act on.
func (r *Reconciler) deferOrDrop(ctx context.Context, event Event, action subscription.Action, email string) (Result, error) {
	if action == subscription.ActionDeactivate || email == "" {
		r.log.WarnContext(ctx, "payment event matches no tenant, dropping",
			slog.String("provider", event.Provider),
			slog.String("event_type", string(event.Type)),
			slog.String("email", email))
		return Result{Action: subscription.ActionNone}, nil
	}

	if err := r.pending.Put(ctx, &ledger.PendingActivation{
		Email:           email,
		Provider:        event.Provider,
		ExternalOrderID: event.ExternalOrderID,
		ExternalSubID:   event.ExternalSubID,
		PlanID:          event.PlanID,
		Amount:          event.Amount,
		CreatedAt:       event.OccurredAt.UTC(),
	}); err != nil {
		return Result{}, err
	}

	r.log.InfoContext(ctx, "payment event parked as pending activation",
		slog.String("provider", event.Provider),
		slog.String("email", email))
	return Result{Action: action, Pending: true}, nil
}

// applyTransition runs the state machine against the store with a bounded
// compare-and-save loop. A missing subscription is created as trial first:
// tenants normally get one at signup, but reconciliation must not depend
// on that ordering.
func (r *Reconciler) applyTransition(ctx context.Context, tenantID uuid.UUID, action subscription.Action, event Event) (subscription.Status, error) {
	ref := subscription.EventRef{
		Provider:   event.Provider,
		EventID:    event.ExternalEventID,
		SubID:      event.ExternalSubID,
		OrderID:    event.ExternalOrderID,
		PlanID:     event.PlanID,
		OccurredAt: event.OccurredAt,
	}

	for range saveRetries {
		sub, err := r.subs.Get(ctx, tenantID)
		if err != nil {
			if !errors.Is(err, subscription.ErrNotFound) {
				return "", err
			}
			sub = subscription.NewTrial(tenantID, event.PlanID, event.OccurredAt)
			if err := r.subs.Create(ctx, sub); err != nil && !errors.Is(err, subscription.ErrAlreadyExists) {
				return "", err
			}
			continue
		}

		next, changed, err := subscription.Apply(*sub, action, ref)
		if err != nil {
			return "", err
		}
		if !changed {
			return sub.Status, nil
		}

		if err := r.subs.Save(ctx, &next, sub.Status); err != nil {
			if errors.Is(err, subscription.ErrStale) {
				continue
			}
			return "", err
		}
		return next.Status, nil
	}
	return "", ErrStoreConflict
}

// completeClaim finishes an event that was claimed but never settled:
// it re-applies the transition and settles the ledger row. The event ID
// stamped on the subscription makes the re-apply a no-op when the earlier
// delivery got the transition through but died before settling.
func (r *Reconciler) completeClaim(ctx context.Context, charge *ledger.Charge, event Event) (Result, error) {
	status, err := r.applyTransition(ctx, charge.TenantID, charge.Action, event)
	if err != nil {
		return Result{}, err
	}
	if err := r.charges.Settle(ctx, event.Provider, event.ExternalEventID, ledger.StatusForAction(charge.Action)); err != nil {
		return Result{}, err
	}

	r.log.InfoContext(ctx, "completed half-applied payment event",
		slog.String("provider", event.Provider),
		slog.String("event_id", event.ExternalEventID),
		slog.String("tenant_id", charge.TenantID.String()),
		slog.String("status", string(status)))

	return Result{Action: charge.Action, Status: status, Duplicate: true}, nil
}

// recordedResult rebuilds the result of an already-processed event from
// its ledger row, used by the dedupe fast path. Pending claims fall
// through to the authoritative path so they get completed.
func (r *Reconciler) recordedResult(ctx context.Context, event Event) (Result, bool) {
	charge, err := r.charges.GetByEventID(ctx, event.Provider, event.ExternalEventID)
	if err != nil || charge.Status == ledger.ChargeStatusPending {
		return Result{}, false
	}
	return r.duplicateResult(ctx, charge), true
}

func (r *Reconciler) duplicateResult(ctx context.Context, charge *ledger.Charge) Result {
	res := Result{Action: charge.Action, Duplicate: true}
	if sub, err := r.subs.Get(ctx, charge.TenantID); err == nil {
		res.Status = sub.Status
	}
	return res
}
