package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-processors/stripe/domain/entities"
	domainerrors "seamless/contexts/payment-processors/stripe/domain/errors"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sequenceIDs struct{ n int }

func (s *sequenceIDs) NewID(context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("evt-%d", s.n), nil
}

type fakeGateway struct {
	existing       *entities.Customer
	confirmStatus  string
	captureStatus  string
	itemErr        error
	createdKeys    []string
	customerLookup error
}

func (g *fakeGateway) SearchCustomerByEmail(_ context.Context, email string) (entities.Customer, bool, error) {
	if g.existing != nil && g.existing.Email == email {
		return *g.existing, true, nil
	}
	return entities.Customer{}, false, nil
}

func (g *fakeGateway) GetCustomer(_ context.Context, customerID string) (entities.Customer, error) {
	if g.customerLookup != nil {
		return entities.Customer{}, g.customerLookup
	}
	return entities.Customer{ID: customerID}, nil
}

func (g *fakeGateway) CreateCustomer(_ context.Context, request entities.CustomerRequest, key string) (entities.Customer, error) {
	g.createdKeys = append(g.createdKeys, key)
	return entities.Customer{ID: "cus_new", Name: request.Name, Email: request.Email}, nil
}

func (g *fakeGateway) CreateDraftInvoice(_ context.Context, request entities.InvoiceRequest, key string) (entities.Invoice, error) {
	g.createdKeys = append(g.createdKeys, key)
	if request.Metadata["transaction_id"] == "" {
		return entities.Invoice{}, errors.New("missing transaction metadata")
	}
	return entities.Invoice{ID: "in_1", Status: "draft", CustomerID: request.Customer.ID, Currency: request.Currency}, nil
}

func (g *fakeGateway) CreateInvoiceItem(_ context.Context, invoice entities.Invoice, item entities.Item, _ map[string]string, key string) (entities.InvoiceItem, error) {
	g.createdKeys = append(g.createdKeys, key)
	if g.itemErr != nil {
		return entities.InvoiceItem{}, g.itemErr
	}
	return entities.InvoiceItem{ID: "ii_" + item.Name, InvoiceID: invoice.ID, Amount: item.Total(), Currency: invoice.Currency}, nil
}

func (g *fakeGateway) FinalizeInvoice(_ context.Context, invoiceID string) (entities.Invoice, error) {
	return entities.Invoice{ID: invoiceID, Number: "A-0001", Status: "open", AmountDue: 59.98, Currency: "usd"}, nil
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, request entities.PaymentIntentRequest, key string) (entities.PaymentIntent, error) {
	g.createdKeys = append(g.createdKeys, key)
	return entities.PaymentIntent{ID: "pi_1", Status: "requires_payment_method", ClientSecret: "secret", Amount: request.Amount, Currency: request.Currency}, nil
}

func (g *fakeGateway) UpdatePaymentIntent(_ context.Context, id string, paymentMethodID string) (entities.PaymentIntent, error) {
	return entities.PaymentIntent{ID: id, Status: "requires_confirmation", PaymentMethodID: paymentMethodID}, nil
}

func (g *fakeGateway) ConfirmPaymentIntent(_ context.Context, id string) (entities.PaymentIntent, error) {
	return entities.PaymentIntent{ID: id, Status: g.confirmStatus, Amount: 59.98, Currency: "usd"}, nil
}

func (g *fakeGateway) CapturePaymentIntent(_ context.Context, id string) (entities.PaymentIntent, error) {
	return entities.PaymentIntent{ID: id, Status: g.captureStatus, AmountReceived: 59.98, Currency: "usd", CustomerID: "cus_1"}, nil
}

type fixture struct {
	service Service
	gateway *fakeGateway
	manager *trackingapp.Manager
	events  *[]trackingentities.PaymentEvent
}

func newFixture(gateway *fakeGateway) fixture {
	var events []trackingentities.PaymentEvent
	tracker := trackingapp.NewTracker(nil)
	tracker.Enable()
	tracker.AddHandler(trackingapp.HandlerFunc(func(_ context.Context, event trackingentities.PaymentEvent) error {
		events = append(events, event)
		return nil
	}))
	ids := &sequenceIDs{}
	clock := fixedClock{now: time.Unix(1700000000, 0)}
	manager := &trackingapp.Manager{Tracker: tracker, IDGen: ids, Clock: clock}
	return fixture{
		service: Service{
			Gateway: gateway,
			Events:  trackingapp.Emitter{Tracker: tracker, IDGen: ids, Clock: clock},
			Clock:   clock,
		},
		gateway: gateway,
		manager: manager,
		events:  &events,
	}
}

func eventTypes(events []trackingentities.PaymentEvent) []trackingentities.EventType {
	out := make([]trackingentities.EventType, 0, len(events))
	for _, event := range events {
		out = append(out, event.EventType)
	}
	return out
}

func TestCreateOrGetCustomerOutcomes(t *testing.T) {
	gateway := &fakeGateway{existing: &entities.Customer{ID: "cus_1", Email: "ada@example.com"}}
	f := newFixture(gateway)
	ctx := context.Background()

	found, err := f.service.CreateOrGetCustomer(ctx, "tx-1", entities.CustomerRequest{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("found: %v", err)
	}
	if found.Outcome != entities.CustomerFound || found.Customer.ID != "cus_1" {
		t.Fatalf("expected existing customer, got %+v", found)
	}
	if len(*f.events) != 0 {
		t.Fatalf("expected no event for an existing customer, got %d", len(*f.events))
	}

	created, err := f.service.CreateOrGetCustomer(ctx, "tx-1", entities.CustomerRequest{Name: "Bob", Email: "bob@example.com"})
	if err != nil {
		t.Fatalf("created: %v", err)
	}
	if created.Outcome != entities.CustomerCreated || created.Customer.ID != "cus_new" {
		t.Fatalf("expected created customer, got %+v", created)
	}
	if gateway.createdKeys[0] != "CUST-bob@example.com" {
		t.Fatalf("expected email idempotency key, got %s", gateway.createdKeys[0])
	}
	if len(*f.events) != 1 || (*f.events)[0].EventType != trackingentities.EventCustomerCreated {
		t.Fatalf("expected customer_created event, got %v", eventTypes(*f.events))
	}
}

func TestStripeFlowEmitsChainInOrder(t *testing.T) {
	f := newFixture(&fakeGateway{confirmStatus: "requires_capture", captureStatus: "succeeded"})
	ctx := context.Background()
	tx, err := f.manager.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	payment, err := trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (entities.Payment, error) {
		invoice, err := f.service.CreateInvoice(ctx, transactionID, entities.InvoiceRequest{
			Customer: entities.Customer{ID: "cus_1"},
			Items:    []entities.Item{{Name: "Widget", Price: 29.99, Quantity: 2}},
			Currency: entities.CurrencyUSD,
		})
		if err != nil {
			return entities.Payment{}, err
		}
		intent, err := f.service.CreatePaymentIntentFromInvoice(ctx, transactionID, invoice)
		if err != nil {
			return entities.Payment{}, err
		}
		if _, err := f.service.AttachPaymentMethod(ctx, transactionID, intent.ID, "pm_card_visa"); err != nil {
			return entities.Payment{}, err
		}
		return f.service.ConfirmAndCapture(ctx, transactionID, intent.ID)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if payment.Amount != 59.98 {
		t.Fatalf("expected 59.98 captured, got %f", payment.Amount)
	}

	want := []trackingentities.EventType{
		trackingentities.EventInvoiceCreated,
		trackingentities.EventInvoiceItemCreated,
		trackingentities.EventInvoiceFinalized,
		trackingentities.EventPaymentIntentCreated,
		trackingentities.EventPaymentMethodAttached,
		trackingentities.EventPaymentConfirmed,
		trackingentities.EventPaymentCaptured,
	}
	got := eventTypes(*f.events)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i, event := range *f.events {
		if event.TransactionID != tx.ID() {
			t.Fatalf("expected every event under %s, got %s", tx.ID(), event.TransactionID)
		}
		if i > 0 && event.ParentEventID != (*f.events)[i-1].EventID {
			t.Fatalf("expected event %d linked to its predecessor", i)
		}
	}
	if f.gateway.createdKeys[0] != "DRAFT-INV-1700000000" || f.gateway.createdKeys[1] != "INVITEM-1700000000-Widget" {
		t.Fatalf("unexpected idempotency keys %v", f.gateway.createdKeys)
	}
	if f.gateway.createdKeys[2] != "in_1" {
		t.Fatalf("expected invoice id as payment intent key, got %s", f.gateway.createdKeys[2])
	}
}

func TestConfirmRequiresPaymentMethod(t *testing.T) {
	f := newFixture(&fakeGateway{confirmStatus: "requires_payment_method"})
	_, err := f.service.ConfirmAndCapture(context.Background(), "tx-1", "pi_1")
	if !errors.Is(err, domainerrors.ErrPaymentMethodRequired) {
		t.Fatalf("expected ErrPaymentMethodRequired, got %v", err)
	}
	events := *f.events
	if len(events) != 1 || events[0].Status != "failed" {
		t.Fatalf("expected one failed confirmation event, got %v", events)
	}
}

func TestConfirmAndCaptureRequiresCapturableIntent(t *testing.T) {
	f := newFixture(&fakeGateway{confirmStatus: "processing"})
	_, err := f.service.ConfirmAndCapture(context.Background(), "tx-1", "pi_1")
	if !errors.Is(err, domainerrors.ErrPaymentIntentNotReady) {
		t.Fatalf("expected ErrPaymentIntentNotReady, got %v", err)
	}
}

func TestCaptureIncomplete(t *testing.T) {
	f := newFixture(&fakeGateway{captureStatus: "requires_capture"})
	_, err := f.service.CapturePaymentIntent(context.Background(), "tx-1", "pi_1")
	if !errors.Is(err, domainerrors.ErrCaptureIncomplete) {
		t.Fatalf("expected ErrCaptureIncomplete, got %v", err)
	}
	events := *f.events
	if len(events) != 1 || trackingentities.DeriveStatus(events[0].EventType, events[0].Status) != trackingentities.TransactionStatusFailed {
		t.Fatalf("expected a failed capture record, got %v", events)
	}
}

func TestInvoiceItemFailureStopsBeforeFinalize(t *testing.T) {
	itemErr := errors.New("card_error")
	f := newFixture(&fakeGateway{itemErr: itemErr})
	_, err := f.service.CreateInvoice(context.Background(), "tx-1", entities.InvoiceRequest{
		Customer: entities.Customer{ID: "cus_1"},
		Items:    []entities.Item{{Name: "Widget", Price: 1, Quantity: 1}},
		Currency: entities.CurrencyUSD,
	})
	if !errors.Is(err, domainerrors.ErrInvoiceItemCreation) || !errors.Is(err, itemErr) {
		t.Fatalf("expected wrapped item error, got %v", err)
	}
	got := eventTypes(*f.events)
	if len(got) != 2 || got[1] != trackingentities.EventInvoiceItemCreated || (*f.events)[1].Status != "failed" {
		t.Fatalf("expected invoice_created then failed invoice_item_created, got %v", got)
	}
}

func TestGetCustomerNotFound(t *testing.T) {
	f := newFixture(&fakeGateway{customerLookup: fmt.Errorf("%w: status 404", domainerrors.ErrCustomerNotFound)})
	_, err := f.service.GetCustomer(context.Background(), "cus_missing")
	if !errors.Is(err, domainerrors.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
