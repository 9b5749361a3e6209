package application

import (
	"context"
	"testing"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/internal/shared/events"
)

type topicRecorder struct {
	topics    []string
	envelopes []events.Envelope
}

func (p *topicRecorder) Publish(_ context.Context, topic string, event events.Envelope) error {
	p.topics = append(p.topics, topic)
	p.envelopes = append(p.envelopes, event)
	return nil
}

func TestTopicAndPatternShareDefaultPrefix(t *testing.T) {
	if got := Topic(" .", entities.ProcessorStripe, entities.EventPaymentCaptured); got != "payments.stripe.payment_captured" {
		t.Fatalf("expected default prefix topic, got %s", got)
	}
	if got := TopicPattern("", ""); got != "payments.#" {
		t.Fatalf("expected payments.#, got %s", got)
	}
	if got := TopicPattern("shop.", entities.ProcessorPayPal); got != "shop.paypal.#" {
		t.Fatalf("expected shop.paypal.#, got %s", got)
	}
}

func TestPublishingHandlerRoutesByProcessorAndType(t *testing.T) {
	publisher := &topicRecorder{}
	handler := PublishingHandler{Publisher: publisher, TopicPrefix: "shop", SourceService: "checkout-api"}
	event := testEvent(t, "e1")
	event.ParentEventID = "e0"

	if err := handler.HandlePaymentEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(publisher.topics) != 1 || publisher.topics[0] != "shop.paypal.invoice_created" {
		t.Fatalf("expected shop.paypal.invoice_created, got %v", publisher.topics)
	}
	envelope := publisher.envelopes[0]
	if envelope.CorrelationID != "tx-1" || envelope.CausationID != "e0" {
		t.Fatalf("expected transaction and parent ids on envelope, got %+v", envelope)
	}
	if envelope.EntityType != events.EntityTypePaymentEvent || envelope.EntityID != "INV-1" {
		t.Fatalf("expected payment_event INV-1, got %s %s", envelope.EntityType, envelope.EntityID)
	}
	if envelope.SourceService != "checkout-api" {
		t.Fatalf("expected source checkout-api, got %s", envelope.SourceService)
	}
}
