package hotmart

import "errors"

var (
	ErrInvalidToken       = errors.New("hotmart webhook token mismatch")
	ErrMalformedPayload   = errors.New("malformed hotmart payload")
	ErrSubscriberNotFound = errors.New("hotmart subscriber not found")
	ErrRequestFailed      = errors.New("hotmart API request failed")
)
