package ports

import (
	"context"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/internal/shared/events"
	"seamless/internal/shared/outbox"
)

// EventHandler receives every tracked event while tracking is enabled.
// Returned errors are logged by the tracker and never reach the emitter.
type EventHandler interface {
	HandlePaymentEvent(ctx context.Context, event entities.PaymentEvent) error
}

// TransactionStore is the append-only record log behind the persistence mapper.
type TransactionStore interface {
	// Initialize creates the schema when absent. Safe to call repeatedly.
	Initialize(ctx context.Context) error
	// CreateTransaction inserts a record; a known event_id yields ErrDuplicateEvent.
	CreateTransaction(ctx context.Context, record entities.TransactionRecord) (entities.TransactionRecord, error)
	// GetTransaction returns the latest record of a transaction for one processor.
	GetTransaction(ctx context.Context, transactionID string, processor entities.Processor) (entities.TransactionRecord, error)
	// ListTransactionRecords returns every record of a transaction in creation order.
	ListTransactionRecords(ctx context.Context, transactionID string) ([]entities.TransactionRecord, error)
	// GetTransactionsByCustomer returns records newest first.
	GetTransactionsByCustomer(ctx context.Context, customerID string, limit int, offset int) ([]entities.TransactionRecord, error)
	// GetResourceRecords returns records of one vendor resource in creation order.
	GetResourceRecords(ctx context.Context, resourceID string, processor entities.Processor) ([]entities.TransactionRecord, error)
	Close() error
}

// RecordFeed pages through the record log by store-assigned id.
type RecordFeed interface {
	ListRecordsAfter(ctx context.Context, afterID int64, limit int) ([]entities.TransactionRecord, error)
}

type RelayCursorStore interface {
	GetCursor(ctx context.Context, consumer string) (outbox.Cursor, error)
	SaveCursor(ctx context.Context, cursor outbox.Cursor) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}
