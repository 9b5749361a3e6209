package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-processors/paypal/domain/entities"
	domainerrors "seamless/contexts/payment-processors/paypal/domain/errors"
	"seamless/contexts/payment-processors/paypal/ports"
)

const moduleName = "payment-processors/paypal"

// Service runs PayPal invoice, order and capture calls and reports each
// outcome as a payment event. Vendor errors come back wrapped in the
// matching domain error; event emission problems are logged only.
type Service struct {
	Gateway    ports.Gateway
	Events     ports.EventEmitter
	Clock      ports.Clock
	Experience entities.ExperienceContext
	Logger     *slog.Logger
}

func (s Service) CreateInvoice(
	ctx context.Context,
	transactionID string,
	request entities.InvoiceRequest,
) (entities.Invoice, error) {
	if s.Gateway == nil {
		return entities.Invoice{}, domainerrors.ErrNotConfigured
	}
	now := s.now()
	if err := request.Validate(now); err != nil {
		return entities.Invoice{}, err
	}

	draft := trackingentities.EventDraft{
		EventType: trackingentities.EventPayPalInvoiceCreated,
		Processor: trackingentities.ProcessorPayPal,
		Amount:    trackingentities.Amount(request.Total()),
		Currency:  request.Currency,
		Metadata:  stringMetadata(request.Metadata),
	}

	invoice, raw, err := s.Gateway.CreateInvoice(ctx, request, now)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		return entities.Invoice{}, fmt.Errorf("%w: %w", domainerrors.ErrInvoiceCreation, err)
	}

	draft.ResourceID = invoice.ID
	draft.Status = invoice.Status
	draft.Amount = trackingentities.Amount(invoice.AmountDue)
	draft.Currency = invoice.Currency
	draft.ProcessorMetadata = map[string]any{"data": raw, "invoice_number": invoice.Number}
	s.emit(ctx, transactionID, draft)

	s.logger().Info("paypal invoice created",
		"event", "paypal_invoice_created",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"invoice_id", invoice.ID,
	)
	return invoice, nil
}

// CreateOrderFromInvoice opens a CAPTURE order for the invoice amount and
// returns the buyer approval link.
func (s Service) CreateOrderFromInvoice(
	ctx context.Context,
	transactionID string,
	invoice entities.Invoice,
) (entities.Order, error) {
	if s.Gateway == nil {
		return entities.Order{}, domainerrors.ErrNotConfigured
	}
	draft := trackingentities.EventDraft{
		EventType:  trackingentities.EventPayPalOrderCreated,
		Processor:  trackingentities.ProcessorPayPal,
		ResourceID: invoice.ID,
		Amount:     trackingentities.Amount(invoice.AmountDue),
		Currency:   invoice.Currency,
		Metadata:   map[string]any{"invoice_id": invoice.ID},
	}

	order, raw, err := s.Gateway.CreateOrder(ctx, invoice, s.Experience)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		if errors.Is(err, domainerrors.ErrApprovalLinkMissing) {
			return entities.Order{}, err
		}
		return entities.Order{}, fmt.Errorf("%w: %w", domainerrors.ErrOrderCreation, err)
	}

	draft.ResourceID = order.ID
	draft.Status = order.Status
	draft.Amount = trackingentities.Amount(order.Amount)
	draft.Currency = order.Currency
	draft.ProcessorMetadata = map[string]any{"data": raw}
	s.emit(ctx, transactionID, draft)
	return order, nil
}

func (s Service) CaptureOrder(
	ctx context.Context,
	transactionID string,
	orderID string,
	invoiceID string,
) (entities.Capture, error) {
	if s.Gateway == nil {
		return entities.Capture{}, domainerrors.ErrNotConfigured
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return entities.Capture{}, fmt.Errorf("%w: order id is required", domainerrors.ErrCaptureFailed)
	}
	draft := trackingentities.EventDraft{
		EventType:  trackingentities.EventPayPalOrderCaptured,
		Processor:  trackingentities.ProcessorPayPal,
		ResourceID: orderID,
		Metadata:   map[string]any{"invoice_id": invoiceID},
	}

	capture, raw, err := s.Gateway.CaptureOrder(ctx, orderID, invoiceID)
	if err != nil {
		draft.ProcessorMetadata = map[string]any{"data": raw}
		s.emitFailure(ctx, transactionID, draft, err)
		if errors.Is(err, domainerrors.ErrCaptureIncomplete) {
			return entities.Capture{}, err
		}
		return entities.Capture{}, fmt.Errorf("%w: %w", domainerrors.ErrCaptureFailed, err)
	}
	capture.CapturedAt = s.now()

	draft.ResourceID = capture.PaymentID
	draft.Status = capture.Status
	draft.Amount = trackingentities.Amount(capture.Amount)
	draft.Currency = capture.Currency
	draft.ProcessorMetadata = map[string]any{"data": raw, "capture_id": capture.CaptureID}
	draft.Metadata["payment_status"] = "paid"
	s.emit(ctx, transactionID, draft)

	s.logger().Info("paypal order captured",
		"event", "paypal_order_captured",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"order_id", orderID,
		"capture_id", capture.CaptureID,
	)
	return capture, nil
}

func (s Service) emit(ctx context.Context, transactionID string, draft trackingentities.EventDraft) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, transactionID, draft); err != nil {
		s.logEmitFailure(transactionID, draft, err)
	}
}

func (s Service) emitFailure(ctx context.Context, transactionID string, draft trackingentities.EventDraft, cause error) {
	s.logger().Error("paypal call failed",
		"event", "paypal_call_failed",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"event_type", string(draft.EventType),
		"error", cause.Error(),
	)
	if s.Events == nil {
		return
	}
	if _, err := s.Events.EmitFailure(ctx, transactionID, draft, cause); err != nil {
		s.logEmitFailure(transactionID, draft, err)
	}
}

func (s Service) logEmitFailure(transactionID string, draft trackingentities.EventDraft, err error) {
	s.logger().Warn("payment event emission failed",
		"event", "paypal_event_emit_failed",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"event_type", string(draft.EventType),
		"error", err.Error(),
	)
}

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (s Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func stringMetadata(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
