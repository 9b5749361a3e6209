package workers

import (
	"context"
	"log/slog"
	"time"

	application "seamless/contexts/payment-core/event-tracking/application"
	"seamless/contexts/payment-core/event-tracking/ports"
	"seamless/internal/shared/outbox"
)

// RecordRelay publishes stored transaction records to the event bus. The
// record log acts as the outbox: a per-consumer cursor remembers the last
// record id that was published.
type RecordRelay struct {
	Feed          ports.RecordFeed
	Cursors       ports.RelayCursorStore
	Publisher     ports.EventPublisher
	Clock         ports.Clock
	Consumer      string
	TopicPrefix   string
	SourceService string
	BatchSize     int
	Logger        *slog.Logger
}

func (r RecordRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	consumer := r.Consumer
	if consumer == "" {
		consumer = "record-relay"
	}

	cursor, err := r.Cursors.GetCursor(ctx, consumer)
	if err != nil {
		logger.Error("relay cursor load failed",
			"event", "record_relay_cursor_load_failed",
			"module", "payment-core/event-tracking",
			"layer", "worker",
			"consumer", consumer,
			"error", err.Error(),
		)
		return 0, err
	}

	records, err := r.Feed.ListRecordsAfter(ctx, cursor.LastRecordID, limit)
	if err != nil {
		logger.Error("relay record listing failed",
			"event", "record_relay_list_failed",
			"module", "payment-core/event-tracking",
			"layer", "worker",
			"consumer", consumer,
			"after_record_id", cursor.LastRecordID,
			"error", err.Error(),
		)
		return 0, err
	}

	sent := 0
	for _, record := range records {
		envelope := application.EnvelopeFromRecord(record, r.SourceService)
		topic := application.Topic(r.TopicPrefix, record.Processor, record.EventType)
		if err := r.Publisher.Publish(ctx, topic, envelope); err != nil {
			logger.Error("relay publish failed",
				"event", "record_relay_publish_failed",
				"module", "payment-core/event-tracking",
				"layer", "worker",
				"consumer", consumer,
				"record_id", record.ID,
				"event_id", record.EventID,
				"topic", topic,
				"error", err.Error(),
			)
			return sent, err
		}
		cursor = outbox.Cursor{
			Consumer:     consumer,
			LastRecordID: record.ID,
			UpdatedAt:    r.now(),
		}
		if err := r.Cursors.SaveCursor(ctx, cursor); err != nil {
			logger.Error("relay cursor save failed",
				"event", "record_relay_cursor_save_failed",
				"module", "payment-core/event-tracking",
				"layer", "worker",
				"consumer", consumer,
				"record_id", record.ID,
				"error", err.Error(),
			)
			return sent, err
		}
		sent++
	}

	if sent > 0 {
		logger.Info("record relay cycle completed",
			"event", "record_relay_completed",
			"module", "payment-core/event-tracking",
			"layer", "worker",
			"consumer", consumer,
			"sent_count", sent,
			"last_record_id", cursor.LastRecordID,
		)
	}
	return sent, nil
}

func (r RecordRelay) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
