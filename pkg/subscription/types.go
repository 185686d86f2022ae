package subscription

import "time"

// Status represents the persisted state of a subscription.
// Overdue is never stored: it is derived from an active subscription whose
// period end plus grace has elapsed (see Subscription.EffectiveStatus).
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Action is the closed set of transitions a payment event can request.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionRenew      Action = "renew"
	ActionDeactivate Action = "deactivate"
	ActionNone       Action = "none"
)

// GracePeriod is the window after CurrentPeriodEnd during which an
// active subscription still grants access, pending payment confirmation.
const GracePeriod = 24 * time.Hour
