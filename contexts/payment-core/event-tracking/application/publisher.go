package application

import (
	"context"
	"errors"
	"strings"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-core/event-tracking/ports"
	"seamless/internal/shared/events"
)

// PublishingHandler forwards tracked events to an event bus topic.
type PublishingHandler struct {
	Publisher     ports.EventPublisher
	TopicPrefix   string
	SourceService string
}

func (h PublishingHandler) Name() string {
	return "event_publisher"
}

func (h PublishingHandler) HandlePaymentEvent(ctx context.Context, event entities.PaymentEvent) error {
	if h.Publisher == nil {
		return errors.New("event publisher is not configured")
	}
	envelope := EnvelopeFromRecord(entities.RecordFromEvent(event, event.CreatedAt), h.SourceService)
	return h.Publisher.Publish(ctx, Topic(h.TopicPrefix, event.Processor, event.EventType), envelope)
}

// Topic is "<prefix>.<processor>.<event_type>"; the prefix defaults to "payments".
func Topic(prefix string, processor entities.Processor, eventType entities.EventType) string {
	return topicPrefix(prefix) + "." + string(processor) + "." + string(eventType)
}

// TopicPattern binds every event of processor, or of all processors when
// processor is empty, in AMQP topic syntax.
func TopicPattern(prefix string, processor entities.Processor) string {
	if processor == "" {
		return topicPrefix(prefix) + ".#"
	}
	return topicPrefix(prefix) + "." + string(processor) + ".#"
}

func topicPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return "payments"
	}
	return prefix
}

type RecordPayload struct {
	RecordID          int64          `json:"record_id,omitempty"`
	TransactionID     string         `json:"transaction_id"`
	Processor         string         `json:"processor"`
	ResourceID        string         `json:"resource_id"`
	Status            string         `json:"status"`
	ProcessorStatus   string         `json:"processor_status,omitempty"`
	Amount            *float64       `json:"amount,omitempty"`
	Currency          string         `json:"currency,omitempty"`
	CustomerID        string         `json:"customer_id,omitempty"`
	ProcessorMetadata map[string]any `json:"processor_metadata,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

func EnvelopeFromRecord(record entities.TransactionRecord, source string) events.Envelope {
	if strings.TrimSpace(source) == "" {
		source = "seamless"
	}
	return events.Envelope{
		EventID:        record.EventID,
		EventType:      string(record.EventType),
		SourceService:  source,
		OccurredAtUTC:  record.CreatedAt.UTC(),
		CorrelationID:  record.TransactionID,
		CausationID:    record.ParentEventID,
		EntityType:     events.EntityTypePaymentEvent,
		EntityID:       record.ResourceID,
		PayloadVersion: events.PayloadVersionV1,
		Payload: RecordPayload{
			RecordID:          record.ID,
			TransactionID:     record.TransactionID,
			Processor:         string(record.Processor),
			ResourceID:        record.ResourceID,
			Status:            string(record.Status),
			ProcessorStatus:   record.ProcessorStatus,
			Amount:            record.Amount,
			Currency:          record.Currency,
			CustomerID:        record.CustomerID,
			ProcessorMetadata: record.ProcessorMetadata,
			Metadata:          record.Metadata,
		},
	}
}
