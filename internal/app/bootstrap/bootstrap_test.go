package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	"seamless/internal/platform/config"
	"seamless/internal/platform/messaging"
	"seamless/internal/shared/events"
)

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":       ":8080",
		"9090":   ":9090",
		":7070":  ":7070",
		" 8081 ": ":8081",
	}
	for input, want := range cases {
		if got := normalizeAddr(input); got != want {
			t.Fatalf("normalizeAddr(%q): expected %s, got %s", input, want, got)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG") != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
	if parseLevel("warning") != slog.LevelWarn {
		t.Fatalf("expected warn level")
	}
	if parseLevel("verbose") != slog.LevelInfo {
		t.Fatalf("expected unknown levels to fall back to info")
	}
}

func TestOpenTrackingWithSQLite(t *testing.T) {
	cfg := config.Config{
		ServiceName: "seamless-test",
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(t.TempDir(), "payments.db"),
		},
	}
	tracking, repo, err := OpenTracking(cfg, slog.Default())
	if err != nil {
		t.Fatalf("open tracking: %v", err)
	}
	defer tracking.Close()

	if !tracking.Tracker.Enabled() {
		t.Fatalf("expected tracking enabled after initialize")
	}
	ctx := context.Background()
	tx, err := tracking.Transactions.Open(ctx)
	if err != nil {
		t.Fatalf("open transaction: %v", err)
	}
	_, err = trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (trackingentities.PaymentEvent, error) {
		return tracking.Emitter.Emit(ctx, transactionID, trackingentities.EventDraft{
			EventType:  trackingentities.EventCustomerCreated,
			Processor:  trackingentities.ProcessorStripe,
			ResourceID: "cus_1",
			CustomerID: "cus_1",
			Status:     "created",
		})
	})
	tx.Close(err)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	records, err := tracking.Queries.ListTransactionEvents(ctx, tx.ID())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ResourceID != "cus_1" {
		t.Fatalf("expected the customer record persisted, got %+v", records)
	}
	feed, err := repo.ListRecordsAfter(ctx, 0, 10)
	if err != nil {
		t.Fatalf("record feed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("expected the record in the relay feed, got %d", len(feed))
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCaptureLogLogsCapturesOfEveryProcessor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := messaging.NewBus(nil)
	defer bus.Close()
	var logs lockedBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	if err := subscribeCaptureLog(ctx, bus, "payments", logger); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	published := []struct {
		processor trackingentities.Processor
		eventType trackingentities.EventType
		eventID   string
	}{
		{trackingentities.ProcessorStripe, trackingentities.EventPaymentIntentCreated, "e-intent"},
		{trackingentities.ProcessorPayPal, trackingentities.EventPayPalOrderCaptured, "e-paypal"},
		{trackingentities.ProcessorStripe, trackingentities.EventPaymentCaptured, "e-stripe"},
	}
	for _, item := range published {
		topic := trackingapp.Topic("payments", item.processor, item.eventType)
		envelope := events.Envelope{EventID: item.eventID, EventType: string(item.eventType), CorrelationID: "tx-1", OccurredAtUTC: time.Now()}
		if err := bus.Publish(ctx, topic, envelope); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for strings.Count(logs.String(), "bootstrap_capture_published") < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	output := logs.String()
	if strings.Count(output, "bootstrap_capture_published") != 2 {
		t.Fatalf("expected 2 capture logs, got %s", output)
	}
	if !strings.Contains(output, "event_id=e-paypal") || !strings.Contains(output, "event_id=e-stripe") {
		t.Fatalf("expected both captures logged, got %s", output)
	}
	if strings.Contains(output, "e-intent") {
		t.Fatalf("expected non-capture events to be ignored, got %s", output)
	}
}
