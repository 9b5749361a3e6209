package errors

import "errors"

var (
	ErrNotConfigured         = errors.New("stripe client is not configured")
	ErrInvalidRequest        = errors.New("invalid stripe request")
	ErrCustomerCreation      = errors.New("stripe customer creation failed")
	ErrCustomerRetrieval     = errors.New("stripe customer retrieval failed")
	ErrCustomerNotFound      = errors.New("stripe customer not found")
	ErrInvoiceCreation       = errors.New("stripe invoice creation failed")
	ErrInvoiceItemCreation   = errors.New("stripe invoice item creation failed")
	ErrPaymentIntent         = errors.New("stripe payment intent request failed")
	ErrPaymentMethodRequired = errors.New("stripe payment method is required")
	ErrPaymentIntentNotReady = errors.New("stripe payment intent not in requires_capture status")
	ErrCaptureIncomplete     = errors.New("stripe payment not completed")
)
