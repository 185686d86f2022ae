package ledger

import "errors"

var (
	ErrChargeNotFound  = errors.New("charge not found")
	ErrPendingNotFound = errors.New("pending activation not found")
)
