package usage

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/billing"
	"github.com/dmitrymomot/coachbill/pkg/plan"
	"github.com/dmitrymomot/coachbill/pkg/subscription"
)

// StudentCounterFunc returns the current authoritative student count for a
// tenant. Implementations should query the source of truth (a COUNT over
// the students table), never an incrementally maintained counter.
type StudentCounterFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)

// LimitReport is the answer to "where does this tenant stand against its
// plan limit", including the upgrade suggestion when usage runs hot.
type LimitReport struct {
	billing.UsageSnapshot
	Plan             plan.Plan  `json:"plan"`
	SuggestedUpgrade *plan.Plan `json:"suggested_upgrade,omitempty"`
}

// Admission is the result of a can-add-student check.
type Admission struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Tracker classifies live usage for a tenant.
type Tracker struct {
	subs    subscription.Store
	catalog *plan.Catalog
	advisor *Advisor
	counter StudentCounterFunc
}

// NewTracker creates a usage tracker. All dependencies are required;
// construction panics on nil to fail fast during initialization.
func NewTracker(subs subscription.Store, catalog *plan.Catalog, counter StudentCounterFunc) *Tracker {
	if subs == nil {
		panic("usage: subscription store is required")
	}
	if catalog == nil {
		panic("usage: plan catalog is required")
	}
	if counter == nil {
		panic("usage: student counter is required")
	}
	return &Tracker{
		subs:    subs,
		catalog: catalog,
		advisor: NewAdvisor(catalog),
		counter: counter,
	}
}

// CheckStudentLimit issues a fresh student count and classifies it against
// the tenant's plan. Counter glitches degrade to a zero count rather than
// failing the check; billing must never block product usage.
func (t *Tracker) CheckStudentLimit(ctx context.Context, tenantID uuid.UUID) (LimitReport, error) {
	sub, err := t.subs.Get(ctx, tenantID)
	if err != nil {
		return LimitReport{}, err
	}

	p, err := t.catalog.Lookup(sub.PlanID)
	if err != nil {
		return LimitReport{}, err
	}

	count, err := t.counter(ctx, tenantID)
	if err != nil {
		count = 0
	}

	return t.report(p, count), nil
}

// Preview answers "what would my usage look like with N students" without
// touching any state. Used by pricing previews in the UI.
func (t *Tracker) Preview(ctx context.Context, tenantID uuid.UUID, hypotheticalCount int64) (LimitReport, error) {
	sub, err := t.subs.Get(ctx, tenantID)
	if err != nil {
		return LimitReport{}, err
	}

	p, err := t.catalog.Lookup(sub.PlanID)
	if err != nil {
		return LimitReport{}, err
	}

	return t.report(p, hypotheticalCount), nil
}

// CanAddStudent enforces "pay for what scales": overage is billed, never
// blocked, so admission is refused only for cancelled or expired
// subscriptions. Trial, active and overdue tenants may always add students.
func (t *Tracker) CanAddStudent(ctx context.Context, tenantID uuid.UUID) (Admission, error) {
	sub, err := t.subs.Get(ctx, tenantID)
	if err != nil {
		return Admission{}, err
	}

	switch sub.Status {
	case subscription.StatusCancelled:
		return Admission{Allowed: false, Reason: "subscription cancelled"}, nil
	case subscription.StatusExpired:
		return Admission{Allowed: false, Reason: "subscription expired"}, nil
	default:
		return Admission{Allowed: true}, nil
	}
}

func (t *Tracker) report(p plan.Plan, count int64) LimitReport {
	return LimitReport{
		UsageSnapshot:    billing.Snapshot(count, p),
		Plan:             p,
		SuggestedUpgrade: t.advisor.Suggest(p, count),
	}
}
