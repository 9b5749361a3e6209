package application

import (
	"context"
	"strings"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/contexts/payment-core/event-tracking/ports"
)

// Emitter is what vendor collaborators use to report state transitions.
// Inside Run the event joins the open transaction and its causal chain;
// outside Run it is tracked directly, and a parent link is accepted only
// when Records holds that event under the same transaction.
type Emitter struct {
	Tracker *Tracker
	IDGen   ports.IDGenerator
	Clock   ports.Clock
	Records func() ports.TransactionStore
}

func (e Emitter) Emit(ctx context.Context, transactionID string, draft entities.EventDraft) (entities.PaymentEvent, error) {
	transactionID = strings.TrimSpace(transactionID)
	if tx, ok := TransactionFromContext(ctx); ok && (transactionID == "" || tx.ID() == transactionID) {
		return tx.Emit(ctx, draft)
	}
	if transactionID == "" {
		return entities.PaymentEvent{}, domainerrors.ErrTransactionRequired
	}

	if err := e.checkParent(ctx, transactionID, draft.ParentEventID); err != nil {
		return entities.PaymentEvent{}, err
	}

	eventID := strings.TrimSpace(draft.EventID)
	if eventID == "" {
		if e.IDGen == nil {
			return entities.PaymentEvent{}, domainerrors.ErrInvalidEvent
		}
		generated, err := e.IDGen.NewID(ctx)
		if err != nil {
			return entities.PaymentEvent{}, err
		}
		eventID = generated
	}

	now := time.Now().UTC()
	if e.Clock != nil {
		now = e.Clock.Now().UTC()
	}
	event, err := entities.NewPaymentEvent(transactionID, eventID, now, draft)
	if err != nil {
		return entities.PaymentEvent{}, err
	}
	if e.Tracker != nil {
		e.Tracker.TrackEvent(ctx, event)
	}
	return event, nil
}

func (e Emitter) EmitFailure(ctx context.Context, transactionID string, draft entities.EventDraft, cause error) (entities.PaymentEvent, error) {
	return e.Emit(ctx, transactionID, FailureDraft(draft, cause))
}

func (e Emitter) checkParent(ctx context.Context, transactionID string, parentEventID string) error {
	parentEventID = strings.TrimSpace(parentEventID)
	if parentEventID == "" {
		return nil
	}
	var store ports.TransactionStore
	if e.Records != nil {
		store = e.Records()
	}
	if store == nil {
		return domainerrors.ErrUnknownParentEvent
	}
	records, err := store.ListTransactionRecords(ctx, transactionID)
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.EventID == parentEventID {
			return nil
		}
	}
	return domainerrors.ErrUnknownParentEvent
}
