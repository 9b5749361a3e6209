package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	"seamless/contexts/payment-core/event-tracking/domain/entities"
	httptransport "seamless/contexts/payment-core/event-tracking/transport/http"
	"seamless/internal/app/bootstrap"
	"seamless/internal/platform/config"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "seamless.yaml")
	body := "database:\n  driver: sqlite\n  dsn: " + filepath.Join(dir, "payments.db") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedTransaction(t *testing.T, configPath string) string {
	t.Helper()
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	tracking, _, err := bootstrap.OpenTracking(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open tracking: %v", err)
	}
	defer tracking.Close()

	ctx := context.Background()
	tx, err := tracking.Transactions.Open(ctx)
	if err != nil {
		t.Fatalf("open transaction: %v", err)
	}
	_, err = trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (struct{}, error) {
		for _, draft := range []entities.EventDraft{
			{EventType: entities.EventPaymentIntentCreated, Processor: entities.ProcessorStripe, ResourceID: "pi_cli", CustomerID: "cus_cli", Status: "requires_payment_method"},
			{EventType: entities.EventPaymentCaptured, Processor: entities.ProcessorStripe, ResourceID: "pi_cli", CustomerID: "cus_cli", Status: "succeeded"},
		} {
			if _, err := tracking.Emitter.Emit(ctx, transactionID, draft); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	tx.Close(err)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return tx.ID()
}

func TestMigrateCreatesSchema(t *testing.T) {
	out, err := runCLI(t, "--config", writeConfig(t), "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "schema ready (sqlite)") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEventsPrintsCausalChainAsJSON(t *testing.T) {
	configPath := writeConfig(t)
	txID := seedTransaction(t, configPath)

	out, err := runCLI(t, "--config", configPath, "--json", "events", txID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	var records []httptransport.TransactionRecordDTO
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode output: %v (%s)", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].ParentEventID != records[0].EventID {
		t.Fatalf("expected capture linked to intent creation")
	}
	if records[1].Status != string(entities.TransactionStatusSucceeded) {
		t.Fatalf("expected succeeded, got %s", records[1].Status)
	}
}

func TestCustomerAndResourceTables(t *testing.T) {
	configPath := writeConfig(t)
	txID := seedTransaction(t, configPath)

	out, err := runCLI(t, "--config", configPath, "customer", "cus_cli", "--limit", "1")
	if err != nil {
		t.Fatalf("customer: %v", err)
	}
	if !strings.Contains(out, "payment_captured") || strings.Contains(out, "payment_intent_created") {
		t.Fatalf("expected only the newest record, got %s", out)
	}

	out, err = runCLI(t, "--config", configPath, "resource", "stripe", "pi_cli")
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	if strings.Count(out, txID) != 2 {
		t.Fatalf("expected both records in the table, got %s", out)
	}
}

func TestTransactionUnknownIsAnError(t *testing.T) {
	_, err := runCLI(t, "--config", writeConfig(t), "transaction", "missing", "--processor", "paypal")
	if err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestResourceRejectsUnknownProcessor(t *testing.T) {
	_, err := runCLI(t, "resource", "square", "sq_1")
	if err == nil || !strings.Contains(err.Error(), "unknown processor") {
		t.Fatalf("expected unknown processor error, got %v", err)
	}
}
