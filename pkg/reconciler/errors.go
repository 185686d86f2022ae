package reconciler

import "errors"

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrMalformedEvent = errors.New("malformed payment event")
	ErrStoreConflict  = errors.New("subscription store conflict not resolved")
)
