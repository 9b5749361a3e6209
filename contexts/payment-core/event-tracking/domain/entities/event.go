package entities

import (
	"fmt"
	"maps"
	"strings"
	"time"

	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
)

type EventType string

const (
	EventInvoiceCreated        EventType = "invoice_created"
	EventInvoiceItemCreated    EventType = "invoice_item_created"
	EventInvoiceFinalized      EventType = "invoice_finalized"
	EventCustomerCreated       EventType = "customer_created"
	EventPaymentIntentCreated  EventType = "payment_intent_created"
	EventPaymentMethodAttached EventType = "payment_method_attached"
	EventPaymentConfirmed      EventType = "payment_confirmed"
	EventPaymentCaptured       EventType = "payment_captured"
	EventPaymentFailed         EventType = "payment_failed"
	EventRefundInitiated       EventType = "refund_initiated"
	EventRefundCompleted       EventType = "refund_completed"
	EventPayPalInvoiceCreated  EventType = "paypal_invoice_created"
	EventPayPalOrderCreated    EventType = "paypal_order_created"
	EventPayPalOrderCaptured   EventType = "paypal_order_captured"
)

var knownEventTypes = map[EventType]struct{}{
	EventInvoiceCreated:        {},
	EventInvoiceItemCreated:    {},
	EventInvoiceFinalized:      {},
	EventCustomerCreated:       {},
	EventPaymentIntentCreated:  {},
	EventPaymentMethodAttached: {},
	EventPaymentConfirmed:      {},
	EventPaymentCaptured:       {},
	EventPaymentFailed:         {},
	EventRefundInitiated:       {},
	EventRefundCompleted:       {},
	EventPayPalInvoiceCreated:  {},
	EventPayPalOrderCreated:    {},
	EventPayPalOrderCaptured:   {},
}

func (t EventType) Valid() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// IsCaptureCompletion reports whether funds have moved for this event.
func (t EventType) IsCaptureCompletion() bool {
	return t == EventPaymentCaptured || t == EventPayPalOrderCaptured
}

func (t EventType) IsAuthorizationCreation() bool {
	return t == EventPaymentIntentCreated || t == EventPayPalOrderCreated
}

func (t EventType) IsConfirmation() bool {
	return t == EventPaymentConfirmed
}

type Processor string

const (
	ProcessorPayPal Processor = "paypal"
	ProcessorStripe Processor = "stripe"
)

func (p Processor) Valid() bool {
	return p == ProcessorPayPal || p == ProcessorStripe
}

// PaymentEvent is one immutable state transition inside a payment flow.
type PaymentEvent struct {
	TransactionID     string
	EventID           string
	EventType         EventType
	Processor         Processor
	ResourceID        string
	Status            string
	Amount            *float64
	Currency          string
	CustomerID        string
	ProcessorMetadata map[string]any
	Metadata          map[string]any
	ParentEventID     string
	CreatedAt         time.Time
}

// EventDraft carries the caller-supplied part of an event. Identity,
// timestamps and parent links are assigned when the draft is emitted.
type EventDraft struct {
	EventID           string
	EventType         EventType
	Processor         Processor
	ResourceID        string
	Status            string
	Amount            *float64
	Currency          string
	CustomerID        string
	ProcessorMetadata map[string]any
	Metadata          map[string]any
	ParentEventID     string
}

func NewPaymentEvent(transactionID string, eventID string, createdAt time.Time, draft EventDraft) (PaymentEvent, error) {
	event := PaymentEvent{
		TransactionID:     strings.TrimSpace(transactionID),
		EventID:           strings.TrimSpace(eventID),
		EventType:         draft.EventType,
		Processor:         draft.Processor,
		ResourceID:        strings.TrimSpace(draft.ResourceID),
		Status:            strings.TrimSpace(draft.Status),
		Amount:            copyAmount(draft.Amount),
		Currency:          strings.TrimSpace(draft.Currency),
		CustomerID:        strings.TrimSpace(draft.CustomerID),
		ProcessorMetadata: copyMap(draft.ProcessorMetadata),
		Metadata:          copyMap(draft.Metadata),
		ParentEventID:     strings.TrimSpace(draft.ParentEventID),
		CreatedAt:         createdAt.UTC(),
	}
	if err := event.Validate(); err != nil {
		return PaymentEvent{}, err
	}
	return event, nil
}

func (e PaymentEvent) Validate() error {
	switch {
	case e.TransactionID == "":
		return fmt.Errorf("%w: transaction_id is required", domainerrors.ErrInvalidEvent)
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", domainerrors.ErrInvalidEvent)
	case !e.EventType.Valid():
		return fmt.Errorf("%w: unknown event_type %q", domainerrors.ErrInvalidEvent, e.EventType)
	case !e.Processor.Valid():
		return fmt.Errorf("%w: unknown processor %q", domainerrors.ErrInvalidEvent, e.Processor)
	case e.ResourceID == "":
		return fmt.Errorf("%w: resource_id is required", domainerrors.ErrInvalidEvent)
	case e.ParentEventID != "" && e.ParentEventID == e.EventID:
		return fmt.Errorf("%w: event cannot be its own parent", domainerrors.ErrInvalidEvent)
	case e.CreatedAt.IsZero():
		return fmt.Errorf("%w: created_at is required", domainerrors.ErrInvalidEvent)
	}
	if e.Amount != nil {
		if *e.Amount < 0 {
			return fmt.Errorf("%w: amount must not be negative", domainerrors.ErrInvalidEvent)
		}
		if e.Currency == "" {
			return fmt.Errorf("%w: currency is required when amount is set", domainerrors.ErrInvalidEvent)
		}
	}
	return nil
}

// Clone returns a copy that shares no mutable state with e.
func (e PaymentEvent) Clone() PaymentEvent {
	e.Amount = copyAmount(e.Amount)
	e.ProcessorMetadata = copyMap(e.ProcessorMetadata)
	e.Metadata = copyMap(e.Metadata)
	return e
}

func Amount(value float64) *float64 {
	return &value
}

func copyAmount(value *float64) *float64 {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return maps.Clone(in)
}
