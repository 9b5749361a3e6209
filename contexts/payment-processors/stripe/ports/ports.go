package ports

import (
	"context"
	"time"

	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-processors/stripe/domain/entities"
)

// Gateway is the Stripe REST surface the application needs. Idempotency
// keys are chosen by the caller.
type Gateway interface {
	SearchCustomerByEmail(ctx context.Context, email string) (entities.Customer, bool, error)
	GetCustomer(ctx context.Context, customerID string) (entities.Customer, error)
	CreateCustomer(ctx context.Context, request entities.CustomerRequest, idempotencyKey string) (entities.Customer, error)
	CreateDraftInvoice(ctx context.Context, request entities.InvoiceRequest, idempotencyKey string) (entities.Invoice, error)
	CreateInvoiceItem(ctx context.Context, invoice entities.Invoice, item entities.Item, metadata map[string]string, idempotencyKey string) (entities.InvoiceItem, error)
	FinalizeInvoice(ctx context.Context, invoiceID string) (entities.Invoice, error)
	CreatePaymentIntent(ctx context.Context, request entities.PaymentIntentRequest, idempotencyKey string) (entities.PaymentIntent, error)
	UpdatePaymentIntent(ctx context.Context, paymentIntentID string, paymentMethodID string) (entities.PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, paymentIntentID string) (entities.PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, paymentIntentID string) (entities.PaymentIntent, error)
}

type EventEmitter interface {
	Emit(ctx context.Context, transactionID string, draft trackingentities.EventDraft) (trackingentities.PaymentEvent, error)
	EmitFailure(ctx context.Context, transactionID string, draft trackingentities.EventDraft, cause error) (trackingentities.PaymentEvent, error)
}

type Clock interface {
	Now() time.Time
}
