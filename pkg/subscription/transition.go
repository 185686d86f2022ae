package subscription

import "time"

// EventRef carries the provider identifiers a transition should stamp onto
// the subscription, so the state row always points at the upstream records
// that produced it. EventID makes Apply idempotent per event: replaying the
// event that produced the current state is a no-op.
type EventRef struct {
	Provider   string
	EventID    string
	SubID      string
	OrderID    string
	PlanID     string
	OccurredAt time.Time
}

// transitionFunc applies one action to a subscription value and reports
// whether anything changed. Functions are pure: they operate on a copy and
// never touch storage.
type transitionFunc func(sub Subscription, ref EventRef) (Subscription, bool)

// transitions is the closed action table. Every Action constant has an
// entry, so dispatch is total and each rule is unit-testable in isolation.
var transitions = map[Action]transitionFunc{
	ActionActivate:   activate,
	ActionRenew:      renew,
	ActionDeactivate: deactivate,
	ActionNone:       noop,
}

// Apply runs the transition for the given action and returns the resulting
// subscription and whether it differs from the input. Unknown actions
// return ErrUnknownAction rather than silently dropping the event.
func Apply(sub Subscription, action Action, ref EventRef) (Subscription, bool, error) {
	fn, ok := transitions[action]
	if !ok {
		return sub, false, ErrUnknownAction
	}
	if ref.EventID != "" && sub.LastEventID == ref.EventID {
		// The current state was already produced by this event.
		return sub, false, nil
	}
	next, changed := fn(sub, ref)
	if changed {
		next.LastEventID = ref.EventID
		next.UpdatedAt = ref.OccurredAt.UTC()
	}
	return next, changed, nil
}

// activate starts a fresh paid period from any prior state, including the
// terminal ones: a new subscription-created event is the one path back
// from cancelled or expired.
func activate(sub Subscription, ref EventRef) (Subscription, bool) {
	sub.Status = StatusActive
	sub.CurrentPeriodEnd = ref.OccurredAt.AddDate(0, 1, 0).UTC()
	sub.CancelledAt = nil
	stampProvider(&sub, ref)
	return sub, true
}

// renew extends the current period by one billing cycle. A renewal on a
// subscription with no prior activation proves the subscription exists
// upstream, so it is treated as an implicit activation rather than
// rejected. Renewals on cancelled or expired subscriptions are no-ops.
func renew(sub Subscription, ref EventRef) (Subscription, bool) {
	if sub.IsTerminal() {
		return sub, false
	}
	if sub.Status == StatusTrial || sub.CurrentPeriodEnd.IsZero() {
		return activate(sub, ref)
	}

	from := sub.CurrentPeriodEnd
	if ref.OccurredAt.After(from) {
		from = ref.OccurredAt
	}
	sub.Status = StatusActive
	sub.CurrentPeriodEnd = from.AddDate(0, 1, 0).UTC()
	stampProvider(&sub, ref)
	return sub, true
}

// deactivate cancels on refund, chargeback or explicit cancellation.
// Already-terminal subscriptions stay as they are.
func deactivate(sub Subscription, ref EventRef) (Subscription, bool) {
	if sub.IsTerminal() {
		return sub, false
	}
	at := ref.OccurredAt.UTC()
	sub.Status = StatusCancelled
	sub.CancelledAt = &at
	return sub, true
}

func noop(sub Subscription, _ EventRef) (Subscription, bool) {
	return sub, false
}

func stampProvider(sub *Subscription, ref EventRef) {
	if ref.Provider != "" {
		sub.Provider = ref.Provider
	}
	if ref.SubID != "" {
		sub.ProviderSubID = ref.SubID
	}
	if ref.OrderID != "" {
		sub.ProviderOrderID = ref.OrderID
	}
	if ref.PlanID != "" {
		sub.PlanID = ref.PlanID
	}
}
