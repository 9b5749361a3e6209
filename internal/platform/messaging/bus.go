package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"seamless/internal/shared/events"
)

var ErrBusClosed = errors.New("event bus is closed")

// Bus is the in-process event bus used when no external broker is configured
// and by tests. Subscriptions take AMQP topic patterns: "*" matches one
// dot-separated word and "#" matches zero or more, so "payments.stripe.#"
// binds the same envelopes here as on the broker. Delivery is best effort:
// a full subscriber buffer drops the envelope with a warning.
type Bus struct {
	mu            sync.RWMutex
	subscriptions []*subscription
	closed        bool
	wg            sync.WaitGroup
	logger        *slog.Logger
}

type subscription struct {
	pattern       string
	consumerGroup string
	ch            chan events.Envelope
	cancel        context.CancelFunc
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

func (b *Bus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	var targets []*subscription
	for _, sub := range b.subscriptions {
		if topicMatches(sub.pattern, topic) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub.ch <- event:
		default:
			b.log().Warn("dropping payment event for slow subscriber",
				"event", "bus_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"pattern", sub.pattern,
				"consumer_group", sub.consumerGroup,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"transaction_id", event.CorrelationID,
				"parent_event_id", event.CausationID,
			)
		}
	}

	b.log().Debug("payment event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"subscribers", len(targets),
		"event_id", event.EventID,
		"transaction_id", event.CorrelationID,
	)
	return nil
}

// Subscribe delivers envelopes whose topic matches pattern to handler until
// ctx ends or the bus is closed.
func (b *Bus) Subscribe(
	ctx context.Context,
	pattern string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return errors.New("subscription pattern is required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		pattern:       pattern,
		consumerGroup: consumerGroup,
		ch:            make(chan events.Envelope, 128),
		cancel:        cancel,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		return ErrBusClosed
	}
	b.subscriptions = append(b.subscriptions, sub)
	b.wg.Add(1)
	b.mu.Unlock()

	go b.consume(subCtx, sub, handler)
	return nil
}

func (b *Bus) consume(ctx context.Context, sub *subscription, handler func(context.Context, events.Envelope) error) {
	defer b.wg.Done()
	defer b.removeSubscription(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-sub.ch:
			if ctx.Err() != nil {
				return
			}
			if err := handler(ctx, event); err != nil {
				b.log().Error("payment event consumer failed",
					"event", "bus_consume_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"pattern", sub.pattern,
					"consumer_group", sub.consumerGroup,
					"event_id", event.EventID,
					"event_type", event.EventType,
					"transaction_id", event.CorrelationID,
					"error", err.Error(),
				)
			}
		}
	}
}

// Close stops delivery, cancels every subscriber and waits for in-flight
// handlers to return. Later Publish and Subscribe calls get ErrBusClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := append([]*subscription(nil), b.subscriptions...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	b.wg.Wait()
	return nil
}

func (b *Bus) removeSubscription(target *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	filtered := b.subscriptions[:0]
	for _, sub := range b.subscriptions {
		if sub != target {
			filtered = append(filtered, sub)
		}
	}
	b.subscriptions = filtered
}

func (b *Bus) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

// topicMatches applies AMQP topic-exchange binding rules to dot-separated words.
func topicMatches(pattern string, topic string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(topic, "."))
}

func matchWords(pattern []string, topic []string) bool {
	if len(pattern) == 0 {
		return len(topic) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(topic); i++ {
			if matchWords(pattern[1:], topic[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(topic) > 0 && matchWords(pattern[1:], topic[1:])
	default:
		return len(topic) > 0 && pattern[0] == topic[0] && matchWords(pattern[1:], topic[1:])
	}
}
