package billing

import "github.com/dmitrymomot/coachbill/pkg/plan"

// UsageStatus classifies a student count against a plan's limit.
type UsageStatus string

const (
	UsageUnder    UsageStatus = "under"
	UsageAtLimit  UsageStatus = "at_limit"
	UsageExceeded UsageStatus = "exceeded"
)

// UsageSnapshot is a derived view of a tenant's usage against its plan.
// It is recomputed on demand from a live student count and never cached
// across requests, so concurrent student creation cannot desynchronize it.
type UsageSnapshot struct {
	CurrentStudents int64       `json:"current_students"`
	StudentLimit    int64       `json:"student_limit"`
	Status          UsageStatus `json:"status"`
	ExceededBy      int64       `json:"exceeded_by"`
	ExtraCost       plan.Money  `json:"extra_cost"`
}

// ExtraStudents returns how many students exceed the plan's limit,
// clamped at zero. Negative counts are treated as zero.
func ExtraStudents(count int64, p plan.Plan) int64 {
	return max(0, max(0, count)-p.StudentLimit)
}

// ExtraCost returns the billable overage amount for a student count on a
// plan, in minor currency units. Never negative, never needs rounding.
func ExtraCost(count int64, p plan.Plan) plan.Money {
	return plan.Money{
		Amount:   ExtraStudents(count, p) * p.ExtraStudentPrice.Amount,
		Currency: p.ExtraStudentPrice.Currency,
	}
}

// Snapshot classifies a student count against a plan and prices the overage.
func Snapshot(count int64, p plan.Plan) UsageSnapshot {
	count = max(0, count)

	status := UsageUnder
	switch {
	case count > p.StudentLimit:
		status = UsageExceeded
	case count == p.StudentLimit:
		status = UsageAtLimit
	}

	return UsageSnapshot{
		CurrentStudents: count,
		StudentLimit:    p.StudentLimit,
		Status:          status,
		ExceededBy:      ExtraStudents(count, p),
		ExtraCost:       ExtraCost(count, p),
	}
}

// TotalMonthlyCost is the plan base fee plus the current overage.
func TotalMonthlyCost(count int64, p plan.Plan) plan.Money {
	return plan.Money{
		Amount:   p.Price.Amount + ExtraCost(count, p).Amount,
		Currency: p.Price.Currency,
	}
}
