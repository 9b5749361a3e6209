package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/contexts/payment-core/event-tracking/ports"
)

// Recorder persists every tracked event as an immutable transaction record.
type Recorder struct {
	tracker *Tracker
	clock   ports.Clock
	logger  *slog.Logger

	mu         sync.RWMutex
	store      ports.TransactionStore
	subscribed bool
}

func NewRecorder(tracker *Tracker, clock ports.Clock, logger *slog.Logger) *Recorder {
	return &Recorder{
		tracker: tracker,
		clock:   clock,
		logger:  ResolveLogger(logger),
	}
}

func (r *Recorder) Name() string {
	return "transaction_recorder"
}

// Initialize prepares store and, on first success, subscribes the recorder
// to the tracker and enables tracking. Later calls are no-ops.
func (r *Recorder) Initialize(ctx context.Context, store ports.TransactionStore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		return nil
	}
	if store == nil {
		return domainerrors.ErrStoreNotInitialized
	}
	if err := store.Initialize(ctx); err != nil {
		r.logger.Error("transaction store initialization failed",
			"event", "transaction_store_init_failed",
			"module", moduleName,
			"layer", "application",
			"error", err.Error(),
		)
		return err
	}
	r.store = store

	if r.tracker != nil {
		if !r.subscribed {
			r.tracker.AddHandler(r)
			r.subscribed = true
		}
		r.tracker.Enable()
	}
	r.logger.Info("transaction recorder initialized",
		"event", "transaction_recorder_initialized",
		"module", moduleName,
		"layer", "application",
	)
	return nil
}

func (r *Recorder) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store != nil
}

func (r *Recorder) Store() ports.TransactionStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store
}

// Record maps event onto a transaction record and inserts it once.
func (r *Recorder) Record(ctx context.Context, event entities.PaymentEvent) (entities.TransactionRecord, error) {
	store := r.Store()
	if store == nil {
		return entities.TransactionRecord{}, domainerrors.ErrStoreNotInitialized
	}
	if err := event.Validate(); err != nil {
		return entities.TransactionRecord{}, err
	}
	return store.CreateTransaction(ctx, entities.RecordFromEvent(event, r.now()))
}

// HandlePaymentEvent is the tracker entry point. Storage problems are logged
// here and never returned to the payment flow.
func (r *Recorder) HandlePaymentEvent(ctx context.Context, event entities.PaymentEvent) error {
	record, err := r.Record(ctx, event)
	switch {
	case err == nil:
		r.logger.Debug("transaction record stored",
			"event", "transaction_record_stored",
			"module", moduleName,
			"layer", "application",
			"record_id", record.ID,
			"transaction_id", record.TransactionID,
			"event_id", record.EventID,
			"status", string(record.Status),
		)
	case errors.Is(err, domainerrors.ErrDuplicateEvent):
		r.logger.Warn("transaction record already exists",
			"event", "transaction_record_conflict",
			"module", moduleName,
			"layer", "application",
			"transaction_id", event.TransactionID,
			"event_id", event.EventID,
			"event_type", string(event.EventType),
		)
	case errors.Is(err, domainerrors.ErrStoreNotInitialized):
		r.logger.Warn("transaction recorder is not initialized",
			"event", "transaction_recorder_uninitialized",
			"module", moduleName,
			"layer", "application",
			"event_id", event.EventID,
		)
	default:
		r.logger.Error("transaction record write failed",
			"event", "transaction_record_write_failed",
			"module", moduleName,
			"layer", "application",
			"transaction_id", event.TransactionID,
			"event_id", event.EventID,
			"event_type", string(event.EventType),
			"error", err.Error(),
		)
	}
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store == nil {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func (r *Recorder) now() time.Time {
	if r.clock != nil {
		return r.clock.Now().UTC()
	}
	return time.Now().UTC()
}
