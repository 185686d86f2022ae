package usage

import "github.com/dmitrymomot/coachbill/pkg/plan"

// upgradeThreshold is the utilization ratio at which an upgrade is suggested.
const upgradeThreshold = 0.90

// Advisor recommends a better-fit plan when usage crosses the threshold.
type Advisor struct {
	catalog *plan.Catalog
}

// NewAdvisor creates an upgrade advisor over the plan catalog.
func NewAdvisor(catalog *plan.Catalog) *Advisor {
	if catalog == nil {
		panic("usage: plan catalog is required")
	}
	return &Advisor{catalog: catalog}
}

// Suggest returns the next tier whose limit comfortably exceeds the given
// student count, or nil when usage is below the threshold or the tenant is
// already on the top tier. Pure: safe for "what would my bill be" previews.
//
// The suggested tier is the smallest one that would put utilization at or
// below the threshold again; when even the largest tier is exceeded, the
// largest is suggested and overage billing applies above its limit.
func (a *Advisor) Suggest(current plan.Plan, studentCount int64) *plan.Plan {
	studentCount = max(0, studentCount)

	if float64(studentCount) < upgradeThreshold*float64(current.StudentLimit) {
		return nil
	}

	candidate := current
	found := false
	for {
		next, ok := a.catalog.NextAbove(candidate)
		if !ok {
			break
		}
		candidate = next
		found = true
		if float64(studentCount) <= upgradeThreshold*float64(next.StudentLimit) {
			return &next
		}
	}

	if !found {
		return nil // already on the top tier
	}
	return &candidate
}
