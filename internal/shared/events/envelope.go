package events

import (
	"errors"
	"time"
)

const (
	EntityTypePaymentEvent = "payment_event"
	PayloadVersionV1       = 1
)

// Envelope is the shape payment events take when they leave the process.
// CorrelationID is the transaction id, CausationID the parent event id and
// EntityID the vendor resource id.
type Envelope struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SourceService  string    `json:"source_service"`
	OccurredAtUTC  time.Time `json:"occurred_at_utc"`
	CorrelationID  string    `json:"correlation_id"`
	CausationID    string    `json:"causation_id,omitempty"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	PayloadVersion int       `json:"payload_version"`
	Payload        any       `json:"payload"`
}

// Validate reports envelopes a consumer could not deduplicate or route.
func (e Envelope) Validate() error {
	if e.EventID == "" {
		return errors.New("envelope event_id is required")
	}
	if e.EventType == "" {
		return errors.New("envelope event_type is required")
	}
	return nil
}
