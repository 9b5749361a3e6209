package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	checkout "seamless/contexts/payment-core/checkout"
	checkouthttp "seamless/contexts/payment-core/checkout/transport/http"
	eventtracking "seamless/contexts/payment-core/event-tracking"
	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	trackingentities "seamless/contexts/payment-core/event-tracking/domain/entities"
	trackinghttp "seamless/contexts/payment-core/event-tracking/transport/http"
	paypalentities "seamless/contexts/payment-processors/paypal/domain/entities"
)

type stubPayPal struct {
	events trackingapp.Emitter
}

func (s stubPayPal) CreateInvoice(ctx context.Context, transactionID string, request paypalentities.InvoiceRequest) (paypalentities.Invoice, error) {
	invoice := paypalentities.Invoice{ID: "INV2-HTTP", Status: "SENT", AmountDue: request.Total(), Currency: "USD"}
	_, err := s.events.Emit(ctx, transactionID, trackingentities.EventDraft{
		EventType:  trackingentities.EventPayPalInvoiceCreated,
		Processor:  trackingentities.ProcessorPayPal,
		ResourceID: invoice.ID,
		Status:     invoice.Status,
		CustomerID: request.Customer.Email,
	})
	return invoice, err
}

func (s stubPayPal) CreateOrderFromInvoice(ctx context.Context, transactionID string, invoice paypalentities.Invoice) (paypalentities.Order, error) {
	order := paypalentities.Order{ID: "ORDER-HTTP", InvoiceID: invoice.ID, Status: "PAYER_ACTION_REQUIRED", ApprovalURL: "https://paypal.test/approve", Amount: invoice.AmountDue, Currency: invoice.Currency}
	_, err := s.events.Emit(ctx, transactionID, trackingentities.EventDraft{
		EventType:  trackingentities.EventPayPalOrderCreated,
		Processor:  trackingentities.ProcessorPayPal,
		ResourceID: invoice.ID,
		Status:     order.Status,
	})
	return order, err
}

func (s stubPayPal) CaptureOrder(ctx context.Context, transactionID string, orderID string, invoiceID string) (paypalentities.Capture, error) {
	_, err := s.events.Emit(ctx, transactionID, trackingentities.EventDraft{
		EventType:  trackingentities.EventPayPalOrderCaptured,
		Processor:  trackingentities.ProcessorPayPal,
		ResourceID: invoiceID,
		Status:     "COMPLETED",
	})
	return paypalentities.Capture{PaymentID: orderID, OrderID: orderID, InvoiceID: invoiceID, Amount: 30, Currency: "USD", Status: "COMPLETED"}, err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tracking := eventtracking.NewInMemoryModule(nil)
	if err := tracking.Initialize(context.Background(), tracking.Store); err != nil {
		t.Fatalf("initialize tracking: %v", err)
	}
	checkoutModule := checkout.NewModule(checkout.Dependencies{
		Transactions: tracking.Transactions,
		PayPal:       stubPayPal{events: tracking.Emitter},
	})
	return New(tracking, checkoutModule, nil, "")
}

func serve(server *Server, method string, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := serve(newTestServer(t), http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected json content type, got %s", rr.Header().Get("Content-Type"))
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	rr := serve(newTestServer(t), http.MethodGet, "/v1/transactions/missing?processor=paypal", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp trackinghttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "transaction_not_found" {
		t.Fatalf("expected transaction_not_found, got %s", resp.Code)
	}
}

func TestGetTransactionRejectsUnknownProcessor(t *testing.T) {
	rr := serve(newTestServer(t), http.MethodGet, "/v1/transactions/tx-1?processor=square", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCustomerTransactionsRejectsBadLimit(t *testing.T) {
	rr := serve(newTestServer(t), http.MethodGet, "/v1/customers/cus_1/transactions?limit=ten", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCheckoutRejectsInvalidJSON(t *testing.T) {
	rr := serve(newTestServer(t), http.MethodPost, "/v1/checkout/paypal", []byte(`{"customer":`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestStripeCheckoutUnavailableWithoutCredentials(t *testing.T) {
	body := []byte(`{"customer":{"name":"Ada","email":"ada@example.com"},"items":[{"name":"Widget","quantity":1,"price":10}]}`)
	rr := serve(newTestServer(t), http.MethodPost, "/v1/checkout/stripe", body)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestPayPalCheckoutRoundTripThroughAuditTrail(t *testing.T) {
	server := newTestServer(t)
	body := []byte(`{"customer":{"name":"Ada Lovelace","email":"ada@example.com"},"items":[{"name":"Widget","quantity":3,"price":10}],"currency":"USD"}`)

	started := serve(server, http.MethodPost, "/v1/checkout/paypal", body)
	if started.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", started.Code, started.Body.String())
	}
	var checkoutResp checkouthttp.PayPalCheckoutResponse
	if err := json.Unmarshal(started.Body.Bytes(), &checkoutResp); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	txID := checkoutResp.Data.TransactionID
	if txID == "" || checkoutResp.Data.ApprovalURL == "" {
		t.Fatalf("expected transaction id and approval url, got %+v", checkoutResp.Data)
	}

	captured := serve(server, http.MethodPost, "/v1/checkout/paypal/"+txID+"/capture",
		[]byte(`{"order_id":"ORDER-HTTP","invoice_id":"INV2-HTTP"}`))
	if captured.Code != http.StatusOK {
		t.Fatalf("expected 200 capture, got %d body=%s", captured.Code, captured.Body.String())
	}

	events := serve(server, http.MethodGet, "/v1/transactions/"+txID+"/events", nil)
	if events.Code != http.StatusOK {
		t.Fatalf("expected 200 events, got %d body=%s", events.Code, events.Body.String())
	}
	var list trackinghttp.TransactionListResponse
	if err := json.Unmarshal(events.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(list.Data) != 3 {
		t.Fatalf("expected 3 events, got %d", len(list.Data))
	}
	if list.Data[2].ParentEventID != list.Data[1].EventID {
		t.Fatalf("expected capture to link to the order event")
	}

	latest := serve(server, http.MethodGet, "/v1/transactions/"+txID+"?processor=paypal", nil)
	var single trackinghttp.TransactionResponse
	if err := json.Unmarshal(latest.Body.Bytes(), &single); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if single.Data.Status != string(trackingentities.TransactionStatusSucceeded) {
		t.Fatalf("expected latest status succeeded, got %s", single.Data.Status)
	}

	resource := serve(server, http.MethodGet, "/v1/resources/paypal/INV2-HTTP/records", nil)
	var resourceList trackinghttp.TransactionListResponse
	if err := json.Unmarshal(resource.Body.Bytes(), &resourceList); err != nil {
		t.Fatalf("decode resource: %v", err)
	}
	if len(resourceList.Data) != 3 {
		t.Fatalf("expected 3 resource records, got %d", len(resourceList.Data))
	}
}
