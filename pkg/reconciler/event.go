package reconciler

import (
	"strings"
	"time"

	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

// EventType is the normalized payment event type. Provider packages map
// their raw payloads onto this closed set; anything they cannot map keeps
// its raw name and falls through to ActionNone.
type EventType string

const (
	EventPurchaseApproved     EventType = "purchase_approved"
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionRenewed  EventType = "subscription_renewed"
	EventRefund               EventType = "refund"
	EventChargeback           EventType = "chargeback"
	EventSubscriptionCanceled EventType = "subscription_canceled"
)

// Event is the common shape all provider payloads normalize into.
type Event struct {
	Provider        string
	Type            EventType
	ExternalEventID string
	ExternalSubID   string
	ExternalOrderID string
	CustomerEmail   string
	PlanID          string // provider's product/price ID
	Amount          plan.Money
	OccurredAt      time.Time
}

// Validate rejects events that cannot be reconciled before any mutation.
func (e Event) Validate() error {
	if e.Provider == "" || e.ExternalEventID == "" {
		return ErrMalformedEvent
	}
	return nil
}

// actionTable maps every known event type to its subscription action.
// ActionFor is total: unknown types resolve to ActionNone, never an error,
// so new provider event types cannot break webhook ingestion.
var actionTable = map[EventType]subscription.Action{
	EventPurchaseApproved:     subscription.ActionActivate,
	EventSubscriptionCreated:  subscription.ActionActivate,
	EventSubscriptionRenewed:  subscription.ActionRenew,
	EventRefund:               subscription.ActionDeactivate,
	EventChargeback:           subscription.ActionDeactivate,
	EventSubscriptionCanceled: subscription.ActionDeactivate,
}

// ActionFor classifies an event type into the action the reconciler takes.
func ActionFor(t EventType) subscription.Action {
	if action, ok := actionTable[t]; ok {
		return action
	}
	return subscription.ActionNone
}

// normalizeEmail lower-cases and trims the customer email so lookups and
// pending-activation keys agree across providers.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
