package errors

import "errors"

var (
	ErrNotConfigured       = errors.New("paypal client is not configured")
	ErrInvalidInvoice      = errors.New("invalid paypal invoice request")
	ErrInvoiceCreation     = errors.New("paypal invoice creation failed")
	ErrOrderCreation       = errors.New("paypal order creation failed")
	ErrApprovalLinkMissing = errors.New("paypal order has no payer-action link")
	ErrCaptureFailed       = errors.New("paypal order capture failed")
	ErrCaptureIncomplete   = errors.New("paypal payment not completed")
	ErrAuthentication      = errors.New("paypal authentication failed")
)
