package entities

import (
	"strings"
	"time"
)

type TransactionStatus string

const (
	TransactionStatusPending           TransactionStatus = "pending"
	TransactionStatusSucceeded         TransactionStatus = "succeeded"
	TransactionStatusFailed            TransactionStatus = "failed"
	TransactionStatusRefunded          TransactionStatus = "refunded"
	TransactionStatusPartiallyRefunded TransactionStatus = "partially_refunded"
)

// TransactionRecord is the persisted projection of a PaymentEvent.
// ID is assigned by the store and increases with insertion order.
type TransactionRecord struct {
	ID                int64
	TransactionID     string
	EventID           string
	EventType         EventType
	Processor         Processor
	ResourceID        string
	Status            TransactionStatus
	ProcessorStatus   string
	Amount            *float64
	Currency          string
	CustomerID        string
	ProcessorMetadata map[string]any
	Metadata          map[string]any
	ParentEventID     string
	CreatedAt         time.Time
	RecordedAt        time.Time
}

// DeriveStatus maps a vendor status string and event kind onto the stored
// status. A "failed" vendor status wins over every event kind.
func DeriveStatus(eventType EventType, vendorStatus string) TransactionStatus {
	switch {
	case strings.Contains(strings.ToLower(vendorStatus), "failed"):
		return TransactionStatusFailed
	case eventType.IsCaptureCompletion():
		return TransactionStatusSucceeded
	case eventType.IsAuthorizationCreation():
		return TransactionStatusPending
	case eventType.IsConfirmation():
		return TransactionStatusPending
	default:
		return TransactionStatusPending
	}
}

// RecordFromEvent builds the record that the persistence mapper stores.
func RecordFromEvent(event PaymentEvent, recordedAt time.Time) TransactionRecord {
	processorMetadata := copyMap(event.ProcessorMetadata)
	processorMetadata["event_type"] = string(event.EventType)

	return TransactionRecord{
		TransactionID:     event.TransactionID,
		EventID:           event.EventID,
		EventType:         event.EventType,
		Processor:         event.Processor,
		ResourceID:        event.ResourceID,
		Status:            DeriveStatus(event.EventType, event.Status),
		ProcessorStatus:   event.Status,
		Amount:            copyAmount(event.Amount),
		Currency:          event.Currency,
		CustomerID:        event.CustomerID,
		ProcessorMetadata: processorMetadata,
		Metadata:          copyMap(event.Metadata),
		ParentEventID:     event.ParentEventID,
		CreatedAt:         event.CreatedAt.UTC(),
		RecordedAt:        recordedAt.UTC(),
	}
}
