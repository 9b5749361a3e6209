package ports

import (
	"context"
	"time"

	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-processors/paypal/domain/entities"
)

// Gateway is the PayPal REST surface the application needs.
type Gateway interface {
	CreateInvoice(ctx context.Context, request entities.InvoiceRequest, issuedAt time.Time) (entities.Invoice, map[string]any, error)
	CreateOrder(ctx context.Context, invoice entities.Invoice, experience entities.ExperienceContext) (entities.Order, map[string]any, error)
	CaptureOrder(ctx context.Context, orderID string, invoiceID string) (entities.Capture, map[string]any, error)
}

// EventEmitter reports payment state transitions into the tracking core.
type EventEmitter interface {
	Emit(ctx context.Context, transactionID string, draft trackingentities.EventDraft) (trackingentities.PaymentEvent, error)
	EmitFailure(ctx context.Context, transactionID string, draft trackingentities.EventDraft, cause error) (trackingentities.PaymentEvent, error)
}

type Clock interface {
	Now() time.Time
}
