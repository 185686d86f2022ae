package subscription

import (
	"time"

	"github.com/google/uuid"
)

// Subscription represents a tenant's subscription to a plan.
// Each tenant has exactly one subscription at a time; TenantID is the
// primary key. Rows are never deleted, only transitioned, so the charge
// ledger stays a complete audit trail.
type Subscription struct {
	TenantID         uuid.UUID  `json:"tenant_id"`
	PlanID           string     `json:"plan_id"`
	Status           Status     `json:"status"`
	CurrentPeriodEnd time.Time  `json:"current_period_end"`
	Provider         string     `json:"provider,omitempty"`        // payment processor that owns the upstream subscription
	ProviderSubID    string     `json:"provider_sub_id,omitempty"` // provider's subscription ID (empty for trials)
	ProviderOrderID  string     `json:"provider_order_id,omitempty"`
	LastEventID      string     `json:"-"` // event that produced the current state, for replay detection
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

// NewTrial returns the implicit subscription created at tenant signup.
func NewTrial(tenantID uuid.UUID, planID string, now time.Time) *Subscription {
	return &Subscription{
		TenantID:  tenantID,
		PlanID:    planID,
		Status:    StatusTrial,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// IsValid is the single predicate the rest of the product uses to gate
// feature access. Trials are always valid; active subscriptions remain
// valid through the grace period after their nominal expiry.
func (s *Subscription) IsValid(now time.Time) bool {
	switch s.Status {
	case StatusTrial:
		return true
	case StatusActive:
		return !now.After(s.CurrentPeriodEnd.Add(GracePeriod))
	default:
		return false
	}
}

// EffectiveStatus derives the externally visible status at a point in time.
// An active subscription past its grace window reads as overdue without a
// stored state change; payment confirmation or expiry resolves it.
func (s *Subscription) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusActive && now.After(s.CurrentPeriodEnd.Add(GracePeriod)) {
		return StatusOverdue
	}
	return s.Status
}

// IsTerminal reports whether only a fresh activation can revive the
// subscription. Renewals on terminal subscriptions are no-ops.
func (s *Subscription) IsTerminal() bool {
	return s.Status == StatusCancelled || s.Status == StatusExpired
}
