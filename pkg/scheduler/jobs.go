package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/provider/hotmart"
	"github.com/dmitrymomot/coachbill/pkg/reconciler"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

// expireAfter is how long a subscription may sit active past its period
// end before the expiry job gives up on a late renewal.
const expireAfter = 30 * 24 * time.Hour

// jobBatchSize bounds how many subscriptions one tick processes. Anything
// left over is picked up by the next tick.
const jobBatchSize = 100

// SubscriberChecker looks up a subscription's upstream status at the
// payment provider. *hotmart.Client satisfies it.
type SubscriberChecker interface {
	SubscriberStatus(ctx context.Context, subscriberCode string) (hotmart.SubscriberStatus, error)
}

// EventApplier reconciles a synthesized event for a known tenant.
// *reconciler.Reconciler satisfies it.
type EventApplier interface {
	ApplyForTenant(ctx context.Context, tenantID uuid.UUID, event reconciler.Event) (reconciler.Result, error)
}

// ExpireOverdue returns a job that expires active subscriptions whose
// paid period ended more than thirty days ago. The conditional save in
// the service drops the expiry when a renewal races it.
func ExpireOverdue(store subscription.Store, svc *subscription.Service, log *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().Add(-expireAfter)
		subs, err := store.ListActiveEndedBefore(ctx, cutoff, jobBatchSize)
		if err != nil {
			return fmt.Errorf("list overdue subscriptions: %w", err)
		}

		for _, sub := range subs {
			if err := svc.Expire(ctx, sub.TenantID); err != nil {
				log.ErrorContext(ctx, "failed to expire subscription",
					slog.String("tenant_id", sub.TenantID.String()),
					slog.String("error", err.Error()))
				continue
			}
			log.InfoContext(ctx, "subscription expired",
				slog.String("tenant_id", sub.TenantID.String()),
				slog.Time("period_end", sub.CurrentPeriodEnd))
		}
		return nil
	}
}

// CureOverdue returns a job that re-checks overdue Hotmart subscriptions
// against the provider API. A webhook lost in transit leaves a tenant
// overdue even though the charge went through upstream; the cure job
// synthesizes the missing renewal. A subscription the provider reports as
// gone is cancelled the same way a cancellation webhook would.
//
// Synthesized event IDs are derived from the subscriber code and period
// end, so repeated polls reuse the same ledger claim and never double
// charge.
func CureOverdue(store subscription.Store, checker SubscriberChecker, applier EventApplier, catalog *plan.Catalog, log *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().Add(-subscription.GracePeriod)
		subs, err := store.ListActiveEndedBefore(ctx, cutoff, jobBatchSize)
		if err != nil {
			return fmt.Errorf("list overdue subscriptions: %w", err)
		}

		for _, sub := range subs {
			if sub.Provider != hotmart.Provider || sub.ProviderSubID == "" {
				continue
			}
			cureOne(ctx, sub, checker, applier, catalog, log)
		}
		return nil
	}
}

func cureOne(ctx context.Context, sub subscription.Subscription, checker SubscriberChecker, applier EventApplier, catalog *plan.Catalog, log *slog.Logger) {
	status, err := checker.SubscriberStatus(ctx, sub.ProviderSubID)
	switch {
	case errors.Is(err, hotmart.ErrSubscriberNotFound):
		status = hotmart.SubscriberCancelled
	case err != nil:
		log.WarnContext(ctx, "subscriber status check failed",
			slog.String("tenant_id", sub.TenantID.String()),
			slog.String("error", err.Error()))
		return
	}

	var event reconciler.Event
	switch status {
	case hotmart.SubscriberActive:
		event = reconciler.Event{
			Provider:        hotmart.Provider,
			Type:            reconciler.EventSubscriptionRenewed,
			ExternalEventID: fmt.Sprintf("cure:renew:%s:%d", sub.ProviderSubID, sub.CurrentPeriodEnd.Unix()),
			ExternalSubID:   sub.ProviderSubID,
			PlanID:          sub.PlanID,
			Amount:          planPrice(catalog, sub.PlanID),
			OccurredAt:      time.Now().UTC(),
		}
	case hotmart.SubscriberCancelled, hotmart.SubscriberInactive:
		event = reconciler.Event{
			Provider:        hotmart.Provider,
			Type:            reconciler.EventSubscriptionCanceled,
			ExternalEventID: "cure:cancel:" + sub.ProviderSubID,
			ExternalSubID:   sub.ProviderSubID,
			PlanID:          sub.PlanID,
			OccurredAt:      time.Now().UTC(),
		}
	default:
		// DELAYED and anything unknown: the provider is still dunning,
		// leave the subscription to the grace window and the expiry job.
		return
	}

	res, err := applier.ApplyForTenant(ctx, sub.TenantID, event)
	if err != nil {
		log.ErrorContext(ctx, "failed to apply cure event",
			slog.String("tenant_id", sub.TenantID.String()),
			slog.String("error", err.Error()))
		return
	}

	log.InfoContext(ctx, "overdue subscription cured",
		slog.String("tenant_id", sub.TenantID.String()),
		slog.String("action", string(res.Action)),
		slog.String("status", string(res.Status)),
		slog.Bool("duplicate", res.Duplicate))
}

// planPrice resolves the renewal amount from the catalog; an unknown plan
// records a zero-amount charge rather than blocking the cure.
func planPrice(catalog *plan.Catalog, planID string) plan.Money {
	p, err := catalog.Lookup(planID)
	if err != nil {
		return plan.Money{}
	}
	return p.Price
}
