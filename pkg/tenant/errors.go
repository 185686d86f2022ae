package tenant

import "errors"

var (
	ErrNotFound     = errors.New("tenant not found")
	ErrInvalidEmail = errors.New("invalid tenant email")
)
