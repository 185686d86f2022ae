package subscription

import "errors"

var (
	ErrNotFound      = errors.New("subscription not found")
	ErrAlreadyExists = errors.New("subscription already exists")
	ErrStale         = errors.New("subscription state changed concurrently")
	ErrUnknownAction = errors.New("unknown subscription action")
)
