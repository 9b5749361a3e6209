package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-processors/stripe/domain/entities"
	domainerrors "seamless/contexts/payment-processors/stripe/domain/errors"
	"seamless/contexts/payment-processors/stripe/ports"
)

const moduleName = "payment-processors/stripe"

type Service struct {
	Gateway ports.Gateway
	Events  ports.EventEmitter
	Clock   ports.Clock
	Logger  *slog.Logger
}

// CreateOrGetCustomer reuses the customer registered under the email when
// one exists and creates it otherwise.
func (s Service) CreateOrGetCustomer(
	ctx context.Context,
	transactionID string,
	request entities.CustomerRequest,
) (entities.CustomerResult, error) {
	if s.Gateway == nil {
		return entities.CustomerResult{}, domainerrors.ErrNotConfigured
	}
	if err := request.Validate(); err != nil {
		return entities.CustomerResult{}, err
	}

	existing, found, err := s.Gateway.SearchCustomerByEmail(ctx, request.Email)
	if err != nil {
		return entities.CustomerResult{}, fmt.Errorf("%w: %w", domainerrors.ErrCustomerRetrieval, err)
	}
	if found {
		return entities.CustomerResult{Customer: existing, Outcome: entities.CustomerFound}, nil
	}

	draft := trackingentities.EventDraft{
		EventType: trackingentities.EventCustomerCreated,
		Processor: trackingentities.ProcessorStripe,
	}
	customer, err := s.Gateway.CreateCustomer(ctx, request, "CUST-"+request.Email)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		return entities.CustomerResult{}, fmt.Errorf("%w: %w", domainerrors.ErrCustomerCreation, err)
	}

	draft.ResourceID = customer.ID
	draft.CustomerID = customer.ID
	draft.Status = "created"
	draft.ProcessorMetadata = map[string]any{"email": customer.Email}
	s.emit(ctx, transactionID, draft)
	return entities.CustomerResult{Customer: customer, Outcome: entities.CustomerCreated}, nil
}

func (s Service) GetCustomer(ctx context.Context, customerID string) (entities.Customer, error) {
	if s.Gateway == nil {
		return entities.Customer{}, domainerrors.ErrNotConfigured
	}
	customer, err := s.Gateway.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrCustomerNotFound) {
			return entities.Customer{}, err
		}
		return entities.Customer{}, fmt.Errorf("%w: %w", domainerrors.ErrCustomerRetrieval, err)
	}
	return customer, nil
}

// CreateInvoice creates a draft, adds every item and finalizes it. Each
// step is reported as its own event so a partial failure is visible.
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
	request.Metadata = maps.Clone(request.Metadata)
	if request.Metadata == nil {
		request.Metadata = map[string]string{}
	}
	request.Metadata["transaction_id"] = transactionID

	base := trackingentities.EventDraft{
		Processor:  trackingentities.ProcessorStripe,
		CustomerID: request.Customer.ID,
		Currency:   request.Currency,
	}

	draftStep := base
	draftStep.EventType = trackingentities.EventInvoiceCreated
	draftInvoice, err := s.Gateway.CreateDraftInvoice(ctx, request, entities.DraftInvoiceKey(now))
	if err != nil {
		s.emitFailure(ctx, transactionID, draftStep, err)
		return entities.Invoice{}, fmt.Errorf("%w: %w", domainerrors.ErrInvoiceCreation, err)
	}
	if draftInvoice.CustomerID == "" {
		draftInvoice.CustomerID = request.Customer.ID
	}
	draftStep.ResourceID = draftInvoice.ID
	draftStep.Status = draftInvoice.Status
	draftStep.Amount = trackingentities.Amount(draftInvoice.AmountDue)
	draftStep.ProcessorMetadata = map[string]any{"invoice_number": draftInvoice.Number, "status": draftInvoice.Status}
	s.emit(ctx, transactionID, draftStep)

	for _, item := range request.Items {
		itemStep := base
		itemStep.EventType = trackingentities.EventInvoiceItemCreated
		itemStep.ResourceID = draftInvoice.ID
		key := entities.InvoiceItemKey(now, item.Name)
		created, err := s.Gateway.CreateInvoiceItem(ctx, draftInvoice, item, request.Metadata, key)
		if err != nil {
			s.emitFailure(ctx, transactionID, itemStep, err)
			return entities.Invoice{}, fmt.Errorf("%w: %w: %w", domainerrors.ErrInvoiceCreation, domainerrors.ErrInvoiceItemCreation, err)
		}
		itemStep.ResourceID = created.ID
		itemStep.Status = "created"
		itemStep.Amount = trackingentities.Amount(created.Amount)
		itemStep.ProcessorMetadata = map[string]any{"invoice_id": draftInvoice.ID, "product": item.Name, "quantity": item.Quantity}
		s.emit(ctx, transactionID, itemStep)
	}

	finalStep := base
	finalStep.EventType = trackingentities.EventInvoiceFinalized
	finalStep.ResourceID = draftInvoice.ID
	finalized, err := s.Gateway.FinalizeInvoice(ctx, draftInvoice.ID)
	if err != nil {
		s.emitFailure(ctx, transactionID, finalStep, err)
		return entities.Invoice{}, fmt.Errorf("%w: %w", domainerrors.ErrInvoiceCreation, err)
	}
	if finalized.CustomerID == "" {
		finalized.CustomerID = request.Customer.ID
	}
	finalStep.ResourceID = finalized.ID
	finalStep.Status = finalized.Status
	finalStep.Amount = trackingentities.Amount(finalized.AmountDue)
	finalStep.ProcessorMetadata = map[string]any{"invoice_number": finalized.Number, "status": finalized.Status}
	s.emit(ctx, transactionID, finalStep)

	s.logger().Info("stripe invoice finalized",
		"event", "stripe_invoice_finalized",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"invoice_id", finalized.ID,
		"items", len(request.Items),
	)
	return finalized, nil
}

// CreatePaymentIntentFromInvoice opens a manual-capture intent for the
// invoice amount. The invoice id is the idempotency key, so repeating the
// call returns the same intent.
func (s Service) CreatePaymentIntentFromInvoice(
	ctx context.Context,
	transactionID string,
	invoice entities.Invoice,
) (entities.PaymentIntent, error) {
	if s.Gateway == nil {
		return entities.PaymentIntent{}, domainerrors.ErrNotConfigured
	}
	draft := trackingentities.EventDraft{
		EventType:  trackingentities.EventPaymentIntentCreated,
		Processor:  trackingentities.ProcessorStripe,
		ResourceID: invoice.ID,
		CustomerID: invoice.CustomerID,
		Amount:     trackingentities.Amount(invoice.AmountDue),
		Currency:   invoice.Currency,
		Metadata:   map[string]any{"invoice_id": invoice.ID},
	}

	intent, err := s.Gateway.CreatePaymentIntent(ctx, entities.PaymentIntentRequest{
		InvoiceID:   invoice.ID,
		CustomerID:  invoice.CustomerID,
		Amount:      invoice.AmountDue,
		Currency:    invoice.Currency,
		Description: "Payment for invoice " + invoice.ID,
	}, invoice.ID)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		return entities.PaymentIntent{}, fmt.Errorf("%w: %w", domainerrors.ErrPaymentIntent, err)
	}

	draft.ResourceID = intent.ID
	draft.Status = intent.Status
	s.emit(ctx, transactionID, draft)
	return intent, nil
}

func (s Service) AttachPaymentMethod(
	ctx context.Context,
	transactionID string,
	paymentIntentID string,
	paymentMethodID string,
) (entities.PaymentIntent, error) {
	if s.Gateway == nil {
		return entities.PaymentIntent{}, domainerrors.ErrNotConfigured
	}
	if strings.TrimSpace(paymentMethodID) == "" {
		return entities.PaymentIntent{}, domainerrors.ErrPaymentMethodRequired
	}
	draft := trackingentities.EventDraft{
		EventType:  trackingentities.EventPaymentMethodAttached,
		Processor:  trackingentities.ProcessorStripe,
		ResourceID: paymentIntentID,
		Metadata:   map[string]any{"payment_method": paymentMethodID},
	}
	intent, err := s.Gateway.UpdatePaymentIntent(ctx, paymentIntentID, paymentMethodID)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		return entities.PaymentIntent{}, fmt.Errorf("%w: %w", domainerrors.ErrPaymentIntent, err)
	}
	draft.Status = intent.Status
	s.emit(ctx, transactionID, draft)
	return intent, nil
}

func (s Service) ConfirmPaymentIntent(
	ctx context.Context,
	transactionID string,
	paymentIntentID string,
) (entities.PaymentIntent, error) {
	if s.Gateway == nil {
		return entities.PaymentIntent{}, domainerrors.ErrNotConfigured
	}
	draft := trackingentities.EventDraft{
		EventType:  trackingentities.EventPaymentConfirmed,
		Processor:  trackingentities.ProcessorStripe,
		ResourceID: paymentIntentID,
	}
	intent, err := s.Gateway.ConfirmPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		return entities.PaymentIntent{}, fmt.Errorf("%w: %w", domainerrors.ErrPaymentIntent, err)
	}
	if intent.Status == entities.StatusRequiresPaymentMethod {
		s.emitFailure(ctx, transactionID, draft, domainerrors.ErrPaymentMethodRequired)
		return entities.PaymentIntent{}, domainerrors.ErrPaymentMethodRequired
	}
	draft.Status = intent.Status
	draft.Amount = trackingentities.Amount(intent.Amount)
	draft.Currency = intent.Currency
	s.emit(ctx, transactionID, draft)
	return intent, nil
}

func (s Service) CapturePaymentIntent(
	ctx context.Context,
	transactionID string,
	paymentIntentID string,
) (entities.Payment, error) {
	if s.Gateway == nil {
		return entities.Payment{}, domainerrors.ErrNotConfigured
	}
	draft := trackingentities.EventDraft{
		EventType:  trackingentities.EventPaymentCaptured,
		Processor:  trackingentities.ProcessorStripe,
		ResourceID: paymentIntentID,
	}
	intent, err := s.Gateway.CapturePaymentIntent(ctx, paymentIntentID)
	if err != nil {
		s.emitFailure(ctx, transactionID, draft, err)
		return entities.Payment{}, fmt.Errorf("%w: %w", domainerrors.ErrPaymentIntent, err)
	}
	if intent.Status != entities.StatusSucceeded {
		cause := fmt.Errorf("%w: status %s", domainerrors.ErrCaptureIncomplete, intent.Status)
		s.emitFailure(ctx, transactionID, draft, cause)
		return entities.Payment{}, cause
	}

	payment := entities.Payment{
		ID:         intent.ID,
		Amount:     intent.AmountReceived,
		Currency:   intent.Currency,
		Status:     intent.Status,
		CapturedAt: s.now(),
	}
	draft.Status = intent.Status
	draft.CustomerID = intent.CustomerID
	draft.Amount = trackingentities.Amount(payment.Amount)
	draft.Currency = payment.Currency
	s.emit(ctx, transactionID, draft)

	s.logger().Info("stripe payment captured",
		"event", "stripe_payment_captured",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"payment_intent_id", paymentIntentID,
	)
	return payment, nil
}

// ConfirmAndCapture captures only when confirmation leaves the intent in
// requires_capture.
func (s Service) ConfirmAndCapture(
	ctx context.Context,
	transactionID string,
	paymentIntentID string,
) (entities.Payment, error) {
	intent, err := s.ConfirmPaymentIntent(ctx, transactionID, paymentIntentID)
	if err != nil {
		return entities.Payment{}, err
	}
	if intent.Status != entities.StatusRequiresCapture {
		return entities.Payment{}, fmt.Errorf("%w: status %s", domainerrors.ErrPaymentIntentNotReady, intent.Status)
	}
	return s.CapturePaymentIntent(ctx, transactionID, paymentIntentID)
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
	s.logger().Error("stripe call failed",
		"event", "stripe_call_failed",
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
		"event", "stripe_event_emit_failed",
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
