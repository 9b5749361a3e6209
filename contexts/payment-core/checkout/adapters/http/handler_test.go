package httpadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"seamless/contexts/payment-core/checkout/application"
	domainerrors "seamless/contexts/payment-core/checkout/domain/errors"
	httptransport "seamless/contexts/payment-core/checkout/transport/http"
)

func TestParseDueDateFormats(t *testing.T) {
	got, err := parseDueDate("2026-11-01")
	if err != nil {
		t.Fatalf("date only: %v", err)
	}
	if !got.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}

	got, err = parseDueDate("2026-11-01T15:04:05+02:00")
	if err != nil {
		t.Fatalf("rfc3339: %v", err)
	}
	if got.Hour() != 13 || got.Location() != time.UTC {
		t.Fatalf("expected UTC conversion, got %v", got)
	}

	if got, err := parseDueDate(" "); err != nil || !got.IsZero() {
		t.Fatalf("expected empty due date to stay zero, got %v %v", got, err)
	}
	if _, err := parseDueDate("next friday"); !errors.Is(err, domainerrors.ErrInvalidCheckout) {
		t.Fatalf("expected ErrInvalidCheckout, got %v", err)
	}
}

func TestStartPayPalHandlerRejectsBadDueDate(t *testing.T) {
	handler := Handler{Service: application.Service{}}
	_, err := handler.StartPayPalHandler(context.Background(), httptransport.PayPalCheckoutRequest{DueDate: "soon"})
	if !errors.Is(err, domainerrors.ErrInvalidCheckout) {
		t.Fatalf("expected ErrInvalidCheckout, got %v", err)
	}
}
