package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/contexts/payment-core/event-tracking/ports"
)

// Operation is one unit of work run under a transaction id.
type Operation[T any] func(ctx context.Context, transactionID string) (T, error)

// Manager opens transactions and owns the collaborators every transaction
// needs to emit events.
type Manager struct {
	Tracker *Tracker
	Store   ports.TransactionStore
	IDGen   ports.IDGenerator
	Clock   ports.Clock
	Logger  *slog.Logger
}

// Transaction scopes one logical payment flow. Operations run one at a time
// and every event emitted through it is linked to the previous one.
type Transaction struct {
	id       string
	manager  *Manager
	openedAt time.Time

	busy   atomic.Bool
	closed atomic.Bool

	mu      sync.Mutex
	last    string
	known   map[string]struct{}
	emitted map[string]entities.PaymentEvent
}

type transactionContextKey struct{}

func ContextWithTransaction(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, transactionContextKey{}, tx)
}

func TransactionFromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(transactionContextKey{}).(*Transaction)
	return tx, ok && tx != nil
}

func (m *Manager) Open(ctx context.Context) (*Transaction, error) {
	id, err := m.newID(ctx)
	if err != nil {
		return nil, err
	}
	tx := m.newTransaction(id)

	ResolveLogger(m.Logger).Info("payment transaction opened",
		"event", "payment_transaction_opened",
		"module", moduleName,
		"layer", "application",
		"transaction_id", id,
	)
	return tx, nil
}

// Resume reopens a transaction that was started earlier, possibly by another
// process. The causal chain continues from the last recorded event.
func (m *Manager) Resume(ctx context.Context, transactionID string) (*Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, domainerrors.ErrTransactionRequired
	}
	tx := m.newTransaction(transactionID)

	if m.Store != nil {
		records, err := m.Store.ListTransactionRecords(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			tx.known[record.EventID] = struct{}{}
			tx.last = record.EventID
		}
	}

	ResolveLogger(m.Logger).Info("payment transaction resumed",
		"event", "payment_transaction_resumed",
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
		"last_event_id", tx.last,
	)
	return tx, nil
}

func (m *Manager) newTransaction(id string) *Transaction {
	return &Transaction{
		id:       id,
		manager:  m,
		openedAt: m.now(),
		known:    make(map[string]struct{}),
		emitted:  make(map[string]entities.PaymentEvent),
	}
}

func (m *Manager) now() time.Time {
	if m.Clock != nil {
		return m.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (m *Manager) newID(ctx context.Context) (string, error) {
	if m.IDGen == nil {
		return "", errors.New("transaction id generator is not configured")
	}
	id, err := m.IDGen.NewID(ctx)
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.TrimSpace(id), nil
}

// WithTransaction opens a transaction, hands it to fn and closes it with
// fn's result. The error from fn is returned unchanged.
func WithTransaction(ctx context.Context, m *Manager, fn func(ctx context.Context, tx *Transaction) error) error {
	tx, err := m.Open(ctx)
	if err != nil {
		return err
	}
	err = fn(ContextWithTransaction(ctx, tx), tx)
	tx.Close(err)
	return err
}

// Run executes op with the transaction id and returns its result verbatim.
// Failures are logged and returned as-is; Run never retries.
func Run[T any](ctx context.Context, tx *Transaction, op Operation[T]) (T, error) {
	var zero T
	if tx == nil {
		return zero, domainerrors.ErrTransactionRequired
	}
	if tx.closed.Load() {
		return zero, domainerrors.ErrTransactionClosed
	}
	if !tx.busy.CompareAndSwap(false, true) {
		return zero, domainerrors.ErrTransactionBusy
	}
	defer tx.busy.Store(false)

	result, err := op(ContextWithTransaction(ctx, tx), tx.id)
	if err != nil {
		ResolveLogger(tx.manager.Logger).Error("payment transaction operation failed",
			"event", "payment_transaction_operation_failed",
			"module", moduleName,
			"layer", "application",
			"transaction_id", tx.id,
			"error", err.Error(),
		)
		return result, err
	}
	return result, nil
}

func (tx *Transaction) ID() string {
	return tx.id
}

func (tx *Transaction) LastEventID() string {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.last
}

func (tx *Transaction) Closed() bool {
	return tx.closed.Load()
}

// Close ends the transaction. cause is the error the flow ended with, if any.
func (tx *Transaction) Close(cause error) {
	if !tx.closed.CompareAndSwap(false, true) {
		return
	}
	logger := ResolveLogger(tx.manager.Logger)
	elapsed := tx.manager.now().Sub(tx.openedAt)
	if cause != nil {
		logger.Error("payment transaction ended with error",
			"event", "payment_transaction_failed",
			"module", moduleName,
			"layer", "application",
			"transaction_id", tx.id,
			"duration_ms", elapsed.Milliseconds(),
			"error", cause.Error(),
		)
		return
	}
	logger.Info("payment transaction completed",
		"event", "payment_transaction_completed",
		"module", moduleName,
		"layer", "application",
		"transaction_id", tx.id,
		"duration_ms", elapsed.Milliseconds(),
	)
}

// Emit constructs an event from draft, links it to the previous event of the
// transaction and hands it to the tracker. Re-emitting a draft whose EventID
// was already emitted re-delivers the original event unchanged.
func (tx *Transaction) Emit(ctx context.Context, draft entities.EventDraft) (entities.PaymentEvent, error) {
	if tx.closed.Load() {
		return entities.PaymentEvent{}, domainerrors.ErrTransactionClosed
	}

	event, replay, err := tx.prepare(ctx, draft)
	if err != nil {
		return entities.PaymentEvent{}, err
	}
	if replay {
		ResolveLogger(tx.manager.Logger).Warn("payment event re-emitted",
			"event", "payment_event_reemitted",
			"module", moduleName,
			"layer", "application",
			"transaction_id", tx.id,
			"event_id", event.EventID,
		)
	}
	if tx.manager.Tracker != nil {
		tx.manager.Tracker.TrackEvent(ctx, event)
	}
	return event, nil
}

// EmitFailure records that the step described by draft failed with cause.
func (tx *Transaction) EmitFailure(ctx context.Context, draft entities.EventDraft, cause error) (entities.PaymentEvent, error) {
	return tx.Emit(ctx, FailureDraft(draft, cause))
}

func (tx *Transaction) prepare(ctx context.Context, draft entities.EventDraft) (entities.PaymentEvent, bool, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	eventID := strings.TrimSpace(draft.EventID)
	if eventID != "" {
		if previous, ok := tx.emitted[eventID]; ok {
			return previous.Clone(), true, nil
		}
		if _, ok := tx.known[eventID]; ok {
			return entities.PaymentEvent{}, false, domainerrors.ErrDuplicateEvent
		}
	} else {
		generated, err := tx.manager.newID(ctx)
		if err != nil {
			return entities.PaymentEvent{}, false, err
		}
		eventID = generated
	}

	parent := strings.TrimSpace(draft.ParentEventID)
	if parent == "" {
		parent = tx.last
	} else if _, ok := tx.known[parent]; !ok {
		return entities.PaymentEvent{}, false, fmt.Errorf("%w: %s", domainerrors.ErrUnknownParentEvent, parent)
	}
	draft.ParentEventID = parent

	event, err := entities.NewPaymentEvent(tx.id, eventID, tx.manager.now(), draft)
	if err != nil {
		return entities.PaymentEvent{}, false, err
	}

	tx.known[event.EventID] = struct{}{}
	tx.emitted[event.EventID] = event.Clone()
	tx.last = event.EventID
	return event, false, nil
}

// FailureDraft turns the draft of an attempted step into its failure event:
// same event type and resource, status "failed" and the cause in metadata.
func FailureDraft(draft entities.EventDraft, cause error) entities.EventDraft {
	metadata := make(map[string]any, len(draft.Metadata)+2)
	for key, value := range draft.Metadata {
		metadata[key] = value
	}
	if cause != nil {
		metadata["error"] = cause.Error()
	}
	metadata["original_event_type"] = string(draft.EventType)

	draft.Status = "failed"
	draft.Metadata = metadata
	draft.EventID = ""
	if strings.TrimSpace(draft.ResourceID) == "" {
		draft.ResourceID = "unknown"
	}
	return draft
}
