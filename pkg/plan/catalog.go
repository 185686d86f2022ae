package plan

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Source defines how plans are loaded into the catalog.
type Source interface {
	Load(ctx context.Context) (map[string]Plan, error)
}

// Catalog is an immutable, ordered view over the configured plans.
// Ordering is ascending by student limit so that tier navigation
// (suggested upgrades, smallest suitable plan) is a simple scan.
type Catalog struct {
	plans  map[string]Plan
	sorted []Plan // ascending by StudentLimit
}

// NewCatalog loads plans from the source and validates them.
// The catalog never changes after construction; reload requires a restart.
func NewCatalog(ctx context.Context, src Source) (*Catalog, error) {
	if src == nil {
		panic("plan: Source is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if len(plans) == 0 {
		return nil, ErrEmptyCatalog
	}

	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	sorted := make([]Plan, 0, len(plans))
	for _, p := range plans {
		sorted = append(sorted, p)
	}
	slices.SortFunc(sorted, func(a, b Plan) int {
		if a.StudentLimit != b.StudentLimit {
			return int(a.StudentLimit - b.StudentLimit)
		}
		return int(a.Price.Amount - b.Price.Amount)
	})

	return &Catalog{plans: plans, sorted: sorted}, nil
}

// Lookup returns the plan with the given ID.
func (c *Catalog) Lookup(planID string) (Plan, error) {
	p, ok := c.plans[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// FindSuitable returns the smallest-limit plan that accommodates the given
// student count. If no plan is large enough it returns the largest plan;
// overage billing then applies above its limit.
func (c *Catalog) FindSuitable(studentCount int64) Plan {
	for _, p := range c.sorted {
		if p.Fits(studentCount) {
			return p
		}
	}
	return c.Largest()
}

// NextAbove returns the cheapest plan with a strictly larger student limit
// than the given plan, or false if the plan is already the top tier.
func (c *Catalog) NextAbove(current Plan) (Plan, bool) {
	for _, p := range c.sorted {
		if p.StudentLimit > current.StudentLimit {
			return p, true
		}
	}
	return Plan{}, false
}

// Largest returns the plan with the highest student limit.
func (c *Catalog) Largest() Plan {
	return c.sorted[len(c.sorted)-1]
}

// List returns all plans ordered ascending by student limit.
// The returned slice is a copy and safe to mutate.
func (c *Catalog) List() []Plan {
	return slices.Clone(c.sorted)
}

// validatePlans catches configuration mistakes at startup rather than
// letting them surface as billing errors at runtime.
func validatePlans(plans map[string]Plan) error {
	for planID, p := range plans {
		if p.ID != planID {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan ID mismatch: map key %s != plan.ID %s", planID, p.ID))
		}
		if p.StudentLimit <= 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has non-positive student limit: %d", planID, p.StudentLimit))
		}
		if p.Price.Amount < 0 || p.ExtraStudentPrice.Amount < 0 {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s has negative pricing", planID))
		}
		if p.ExtraStudentPrice.Currency != "" && p.Price.Currency != "" &&
			p.ExtraStudentPrice.Currency != p.Price.Currency {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %s mixes currencies %s and %s", planID, p.Price.Currency, p.ExtraStudentPrice.Currency))
		}
	}
	return nil
}
