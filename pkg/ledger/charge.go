package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

// ChargeStatus classifies a ledger row. Pending marks a freshly claimed
// event whose subscription transition has not been confirmed yet; Settle
// moves it to one of the money-direction statuses once the transition is
// durable.
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusSucceeded ChargeStatus = "succeeded"
	ChargeStatusRefunded  ChargeStatus = "refunded"
)

// Charge is one ledger row. ExternalEventID scoped by Provider is the
// idempotency key; at most one row exists per distinct event.
type Charge struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Provider        string
	ExternalEventID string
	Action          subscription.Action // what the reconciler did with the event
	Amount          plan.Money
	Status          ChargeStatus
	CreatedAt       time.Time // event occurrence time, not ingestion time
}

// StatusForAction maps a reconciler action to the charge status it records.
func StatusForAction(action subscription.Action) ChargeStatus {
	if action == subscription.ActionDeactivate {
		return ChargeStatusRefunded
	}
	return ChargeStatusSucceeded
}

// PeriodTotals aggregates ledger rows whose CreatedAt falls in a
// half-open billing window [start, end).
type PeriodTotals struct {
	TotalAmount int64 // net of refunds, in minor currency units
	Currency    string
	ChargeCount int
}
