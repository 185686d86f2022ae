package ledger

import (
	"time"

	"github.com/dmitrymomot/coachbill/pkg/plan"
)

// PendingActivation links a payment event to an email address that has no
// registered tenant yet. It is consumed (deleted) when a tenant registers
// with a matching email, at which point the subscription activates.
type PendingActivation struct {
	Email           string // lower-cased, the lookup key
	Provider        string
	ExternalOrderID string
	ExternalSubID   string
	PlanID          string
	Amount          plan.Money
	CreatedAt       time.Time
}
