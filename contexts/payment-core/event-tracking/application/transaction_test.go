package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"seamless/contexts/payment-core/event-tracking/adapters/memory"
	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
)

type sequenceIDs struct {
	next int
}

func (s *sequenceIDs) NewID(context.Context) (string, error) {
	s.next++
	return fmt.Sprintf("id-%d", s.next), nil
}

func newTestManager(tracker *Tracker) *Manager {
	return &Manager{
		Tracker: tracker,
		IDGen:   &sequenceIDs{},
	}
}

func TestRunPassesTransactionIDAndReturnsResult(t *testing.T) {
	manager := newTestManager(nil)
	tx, err := manager.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	got, err := Run(context.Background(), tx, func(_ context.Context, transactionID string) (string, error) {
		return "invoice-for-" + transactionID, nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "invoice-for-"+tx.ID() {
		t.Fatalf("expected result to carry transaction id, got %s", got)
	}
}

func TestRunReturnsOperationErrorUnchanged(t *testing.T) {
	manager := newTestManager(nil)
	tx, _ := manager.Open(context.Background())
	vendorErr := errors.New("card declined")

	_, err := Run(context.Background(), tx, func(context.Context, string) (int, error) {
		return 0, vendorErr
	})
	if err != vendorErr {
		t.Fatalf("expected the exact vendor error, got %v", err)
	}
	if tx.Closed() {
		t.Fatalf("expected a failed operation to leave the transaction open")
	}
}

func TestRunIsNotReentrant(t *testing.T) {
	manager := newTestManager(nil)
	tx, _ := manager.Open(context.Background())

	_, err := Run(context.Background(), tx, func(ctx context.Context, _ string) (int, error) {
		return Run(ctx, tx, func(context.Context, string) (int, error) {
			return 1, nil
		})
	})
	if !errors.Is(err, domainerrors.ErrTransactionBusy) {
		t.Fatalf("expected ErrTransactionBusy, got %v", err)
	}

	if _, err := Run(context.Background(), tx, func(context.Context, string) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("expected transaction to accept work after the nested failure, got %v", err)
	}
}

func TestRunRejectsClosedTransaction(t *testing.T) {
	manager := newTestManager(nil)
	tx, _ := manager.Open(context.Background())
	tx.Close(nil)

	_, err := Run(context.Background(), tx, func(context.Context, string) (int, error) { return 1, nil })
	if !errors.Is(err, domainerrors.ErrTransactionClosed) {
		t.Fatalf("expected ErrTransactionClosed, got %v", err)
	}
}

func TestEmitLinksEventsIntoChain(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Enable()
	var delivered []entities.PaymentEvent
	tracker.AddHandler(HandlerFunc(func(_ context.Context, event entities.PaymentEvent) error {
		delivered = append(delivered, event)
		return nil
	}))
	manager := newTestManager(tracker)
	tx, _ := manager.Open(context.Background())

	_, err := Run(context.Background(), tx, func(ctx context.Context, _ string) (struct{}, error) {
		for _, eventType := range []entities.EventType{
			entities.EventPayPalInvoiceCreated,
			entities.EventPayPalOrderCreated,
			entities.EventPayPalOrderCaptured,
		} {
			if _, err := tx.Emit(ctx, entities.EventDraft{
				EventType:  eventType,
				Processor:  entities.ProcessorPayPal,
				ResourceID: "INV-1",
				Status:     "COMPLETED",
			}); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(delivered) != 3 {
		t.Fatalf("expected 3 events, got %d", len(delivered))
	}
	if delivered[0].ParentEventID != "" {
		t.Fatalf("expected first event to have no parent, got %s", delivered[0].ParentEventID)
	}
	for i := 1; i < len(delivered); i++ {
		if delivered[i].ParentEventID != delivered[i-1].EventID {
			t.Fatalf("expected event %d parent %s, got %s", i, delivered[i-1].EventID, delivered[i].ParentEventID)
		}
		if delivered[i].TransactionID != tx.ID() {
			t.Fatalf("expected transaction id %s, got %s", tx.ID(), delivered[i].TransactionID)
		}
	}
}

func TestEmitRejectsParentFromOtherTransaction(t *testing.T) {
	manager := newTestManager(nil)
	tx, _ := manager.Open(context.Background())

	_, err := tx.Emit(context.Background(), entities.EventDraft{
		EventType:     entities.EventPaymentCaptured,
		Processor:     entities.ProcessorStripe,
		ResourceID:    "pi_1",
		ParentEventID: "somebody-elses-event",
	})
	if !errors.Is(err, domainerrors.ErrUnknownParentEvent) {
		t.Fatalf("expected ErrUnknownParentEvent, got %v", err)
	}
}

func TestEmitSurfacesValidationErrors(t *testing.T) {
	manager := newTestManager(nil)
	tx, _ := manager.Open(context.Background())

	_, err := tx.Emit(context.Background(), entities.EventDraft{
		EventType: entities.EventInvoiceCreated,
		Processor: entities.ProcessorStripe,
	})
	if !errors.Is(err, domainerrors.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if tx.LastEventID() != "" {
		t.Fatalf("expected rejected event not to join the chain, got %s", tx.LastEventID())
	}
}

func TestEmitFailureKeepsAttemptedEventType(t *testing.T) {
	manager := newTestManager(nil)
	tx, _ := manager.Open(context.Background())

	event, err := tx.EmitFailure(context.Background(), entities.EventDraft{
		EventType:  entities.EventPayPalOrderCaptured,
		Processor:  entities.ProcessorPayPal,
		ResourceID: "ORDER-1",
	}, errors.New("payment not completed"))
	if err != nil {
		t.Fatalf("emit failure: %v", err)
	}
	if event.Status != "failed" {
		t.Fatalf("expected failed status, got %s", event.Status)
	}
	if event.Metadata["error"] != "payment not completed" {
		t.Fatalf("expected error in metadata, got %v", event.Metadata)
	}
	if event.EventType != entities.EventPayPalOrderCaptured {
		t.Fatalf("expected attempted event type, got %s", event.EventType)
	}
	if entities.DeriveStatus(event.EventType, event.Status) != entities.TransactionStatusFailed {
		t.Fatalf("expected failure event to derive failed status")
	}
}

func TestResumeContinuesStoredChain(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tracker := NewTracker(nil)
	recorder := NewRecorder(tracker, nil, nil)
	if err := recorder.Initialize(ctx, store); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	manager := newTestManager(tracker)
	manager.Store = store

	first, _ := manager.Open(ctx)
	created, err := first.Emit(ctx, entities.EventDraft{
		EventType:  entities.EventPayPalOrderCreated,
		Processor:  entities.ProcessorPayPal,
		ResourceID: "ORDER-1",
		Status:     "PAYER_ACTION_REQUIRED",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	first.Close(nil)

	resumed, err := manager.Resume(ctx, first.ID())
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	captured, err := resumed.Emit(ctx, entities.EventDraft{
		EventType:  entities.EventPayPalOrderCaptured,
		Processor:  entities.ProcessorPayPal,
		ResourceID: "ORDER-1",
		Status:     "COMPLETED",
	})
	if err != nil {
		t.Fatalf("emit after resume: %v", err)
	}
	if captured.ParentEventID != created.EventID {
		t.Fatalf("expected parent %s, got %s", created.EventID, captured.ParentEventID)
	}
	if captured.TransactionID != first.ID() {
		t.Fatalf("expected transaction id %s, got %s", first.ID(), captured.TransactionID)
	}
}

func TestWithTransactionClosesAndReturnsError(t *testing.T) {
	manager := newTestManager(nil)
	vendorErr := errors.New("timeout")
	var seen *Transaction

	err := WithTransaction(context.Background(), manager, func(ctx context.Context, tx *Transaction) error {
		seen = tx
		if fromCtx, ok := TransactionFromContext(ctx); !ok || fromCtx != tx {
			t.Fatalf("expected transaction in context")
		}
		return vendorErr
	})
	if err != vendorErr {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if !seen.Closed() {
		t.Fatalf("expected transaction to be closed")
	}
}
