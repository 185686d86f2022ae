package plan

import "errors"

var (
	ErrPlanNotFound             = errors.New("plan not found")
	ErrEmptyCatalog             = errors.New("plan catalog is empty")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrFailedToLoadPlans        = errors.New("failed to load plans")
)
