package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/contexts/payment-core/event-tracking/ports"
)

const moduleName = "payment-core/event-tracking"

// HandlerFunc adapts a function to ports.EventHandler.
type HandlerFunc func(ctx context.Context, event entities.PaymentEvent) error

func (f HandlerFunc) HandlePaymentEvent(ctx context.Context, event entities.PaymentEvent) error {
	return f(ctx, event)
}

type registeredHandler struct {
	name    string
	handler ports.EventHandler
}

// Tracker fans tracked events out to registered handlers. Delivery starts
// disabled and every handler failure stays inside the tracker.
type Tracker struct {
	mu       sync.RWMutex
	enabled  bool
	handlers []registeredHandler
	logger   *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{logger: ResolveLogger(logger)}
}

func (t *Tracker) Enable() {
	t.mu.Lock()
	t.enabled = true
	t.mu.Unlock()

	t.logger.Info("payment event tracking enabled",
		"event", "event_tracking_enabled",
		"module", moduleName,
		"layer", "application",
	)
}

func (t *Tracker) Disable() {
	t.mu.Lock()
	t.enabled = false
	t.mu.Unlock()

	t.logger.Info("payment event tracking disabled",
		"event", "event_tracking_disabled",
		"module", moduleName,
		"layer", "application",
	)
}

func (t *Tracker) Enabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// AddHandler appends h. Registering the same handler twice delivers twice.
func (t *Tracker) AddHandler(h ports.EventHandler) {
	t.AddNamedHandler(handlerName(h), h)
}

func (t *Tracker) AddNamedHandler(name string, h ports.EventHandler) {
	if h == nil {
		return
	}
	t.mu.Lock()
	t.handlers = append(t.handlers, registeredHandler{name: name, handler: h})
	count := len(t.handlers)
	t.mu.Unlock()

	t.logger.Debug("payment event handler registered",
		"event", "event_handler_registered",
		"module", moduleName,
		"layer", "application",
		"handler", name,
		"handler_count", count,
	)
}

func (t *Tracker) HandlerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// TrackEvent delivers event to every handler in registration order.
func (t *Tracker) TrackEvent(ctx context.Context, event entities.PaymentEvent) {
	t.mu.RLock()
	if !t.enabled {
		t.mu.RUnlock()
		return
	}
	handlers := make([]registeredHandler, len(t.handlers))
	copy(handlers, t.handlers)
	t.mu.RUnlock()

	for _, item := range handlers {
		t.deliver(ctx, item, event.Clone())
	}
}

func (t *Tracker) deliver(ctx context.Context, item registeredHandler, event entities.PaymentEvent) {
	defer func() {
		if recovered := recover(); recovered != nil {
			t.logger.Error("payment event handler panicked",
				"event", "event_handler_panicked",
				"module", moduleName,
				"layer", "application",
				"handler", item.name,
				"transaction_id", event.TransactionID,
				"event_id", event.EventID,
				"event_type", string(event.EventType),
				"error", fmt.Sprint(recovered),
			)
		}
	}()

	if err := item.handler.HandlePaymentEvent(ctx, event); err != nil {
		t.logger.Error("payment event handler failed",
			"event", "event_handler_failed",
			"module", moduleName,
			"layer", "application",
			"handler", item.name,
			"transaction_id", event.TransactionID,
			"event_id", event.EventID,
			"event_type", string(event.EventType),
			"error", err.Error(),
		)
	}
}

func handlerName(h ports.EventHandler) string {
	if named, ok := h.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", h)
}
