package paddle

import "errors"

var (
	ErrInvalidSignature = errors.New("paddle webhook signature verification failed")
	ErrMalformedPayload = errors.New("malformed paddle payload")
)
