package ports

import (
	"context"

	paypalentities "seamless/contexts/payment-processors/paypal/domain/entities"
	stripeentities "seamless/contexts/payment-processors/stripe/domain/entities"
)

type PayPalFlow interface {
	CreateInvoice(ctx context.Context, transactionID string, request paypalentities.InvoiceRequest) (paypalentities.Invoice, error)
	CreateOrderFromInvoice(ctx context.Context, transactionID string, invoice paypalentities.Invoice) (paypalentities.Order, error)
	CaptureOrder(ctx context.Context, transactionID string, orderID string, invoiceID string) (paypalentities.Capture, error)
}

type StripeFlow interface {
	CreateOrGetCustomer(ctx context.Context, transactionID string, request stripeentities.CustomerRequest) (stripeentities.CustomerResult, error)
	CreateInvoice(ctx context.Context, transactionID string, request stripeentities.InvoiceRequest) (stripeentities.Invoice, error)
	CreatePaymentIntentFromInvoice(ctx context.Context, transactionID string, invoice stripeentities.Invoice) (stripeentities.PaymentIntent, error)
	AttachPaymentMethod(ctx context.Context, transactionID string, paymentIntentID string, paymentMethodID string) (stripeentities.PaymentIntent, error)
	ConfirmAndCapture(ctx context.Context, transactionID string, paymentIntentID string) (stripeentities.Payment, error)
}
