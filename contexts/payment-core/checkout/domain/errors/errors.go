package errors

import "errors"

var (
	ErrInvalidCheckout      = errors.New("invalid checkout request")
	ErrProcessorUnavailable = errors.New("payment processor is not configured")
)
