package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/coachbill/pkg/ledger"
	"github.com/dmitrymomot/coachbill/pkg/plan"
)

// PeriodSummary describes a tenant's billing window: the plan base fee,
// the overage priced from current usage, and the charges actually recorded
// in the ledger during the window.
type PeriodSummary struct {
	PeriodStart  time.Time  `json:"period_start"`
	PeriodEnd    time.Time  `json:"period_end"`
	BaseFee      plan.Money `json:"base_fee"`
	ExtraFee     plan.Money `json:"extra_fee"`
	TotalCharges plan.Money `json:"total_charges"`
	ChargeCount  int        `json:"charge_count"`
}

// Summarizer builds period summaries from the charge ledger.
type Summarizer struct {
	charges ledger.ChargeStore
}

// NewSummarizer creates a period summarizer over the given ledger.
func NewSummarizer(charges ledger.ChargeStore) *Summarizer {
	if charges == nil {
		panic("billing: ChargeStore is required")
	}
	return &Summarizer{charges: charges}
}

// PeriodSummary aggregates the tenant's ledger rows in [start, end) and
// combines them with the plan's base fee and the overage for the given
// student count.
func (s *Summarizer) PeriodSummary(ctx context.Context, tenantID uuid.UUID, p plan.Plan, studentCount int64, start, end time.Time) (PeriodSummary, error) {
	totals, err := s.charges.SummarizePeriod(ctx, tenantID, start, end)
	if err != nil {
		return PeriodSummary{}, err
	}

	currency := totals.Currency
	if currency == "" {
		currency = p.Price.Currency
	}

	return PeriodSummary{
		PeriodStart:  start,
		PeriodEnd:    end,
		BaseFee:      p.Price,
		ExtraFee:     ExtraCost(studentCount, p),
		TotalCharges: plan.Money{Amount: totals.TotalAmount, Currency: currency},
		ChargeCount:  totals.ChargeCount,
	}, nil
}
