package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"seamless/contexts/payment-core/checkout/application"
	domainerrors "seamless/contexts/payment-core/checkout/domain/errors"
	httptransport "seamless/contexts/payment-core/checkout/transport/http"
	paypalentities "seamless/contexts/payment-processors/paypal/domain/entities"
	stripeentities "seamless/contexts/payment-processors/stripe/domain/entities"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) StartPayPalHandler(
	ctx context.Context,
	req httptransport.PayPalCheckoutRequest,
) (httptransport.PayPalCheckoutResponse, error) {
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return httptransport.PayPalCheckoutResponse{}, err
	}
	items := make([]paypalentities.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, paypalentities.Item{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	result, err := h.Service.StartPayPal(ctx, application.PayPalCheckoutInput{
		Invoice: paypalentities.InvoiceRequest{
			Customer: paypalentities.Customer{
				Name:  req.Customer.Name,
				Email: req.Customer.Email,
				Phone: req.Customer.Phone,
			},
			Items:    items,
			Currency: req.Currency,
			DueDate:  dueDate,
			Notes:    req.Notes,
			Metadata: req.Metadata,
		},
	})
	if err != nil {
		return httptransport.PayPalCheckoutResponse{}, err
	}
	return httptransport.PayPalCheckoutResponse{
		Status: "success",
		Data: httptransport.PayPalCheckoutData{
			TransactionID: result.TransactionID,
			InvoiceID:     result.InvoiceID,
			OrderID:       result.OrderID,
			ApprovalURL:   result.ApprovalURL,
			Status:        result.Status,
			Amount:        result.Amount,
			Currency:      result.Currency,
		},
	}, nil
}

func (h Handler) CapturePayPalHandler(
	ctx context.Context,
	transactionID string,
	req httptransport.PayPalCaptureRequest,
) (httptransport.CaptureResponse, error) {
	capture, err := h.Service.CapturePayPal(ctx, application.PayPalCaptureInput{
		TransactionID: transactionID,
		OrderID:       req.OrderID,
		InvoiceID:     req.InvoiceID,
	})
	if err != nil {
		return httptransport.CaptureResponse{}, err
	}
	return httptransport.CaptureResponse{
		Status: "success",
		Data: httptransport.CaptureData{
			TransactionID: transactionID,
			PaymentID:     capture.PaymentID,
			Amount:        capture.Amount,
			Currency:      capture.Currency,
			Status:        capture.Status,
			CapturedAt:    formatTime(capture.CapturedAt),
		},
	}, nil
}

func (h Handler) StartStripeHandler(
	ctx context.Context,
	req httptransport.StripeCheckoutRequest,
) (httptransport.StripeCheckoutResponse, error) {
	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return httptransport.StripeCheckoutResponse{}, err
	}
	items := make([]stripeentities.Item, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, stripeentities.Item{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	result, err := h.Service.StartStripe(ctx, application.StripeCheckoutInput{
		Customer: stripeentities.CustomerRequest{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items:            items,
		Currency:         req.Currency,
		Description:      req.Description,
		DueDate:          dueDate,
		CollectionMethod: req.CollectionMethod,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return httptransport.StripeCheckoutResponse{}, err
	}
	return httptransport.StripeCheckoutResponse{
		Status: "success",
		Data: httptransport.StripeCheckoutData{
			TransactionID:   result.TransactionID,
			CustomerID:      result.CustomerID,
			CustomerOutcome: string(result.CustomerOutcome),
			InvoiceID:       result.InvoiceID,
			PaymentIntentID: result.PaymentIntentID,
			ClientSecret:    result.ClientSecret,
			Status:          result.Status,
			Amount:          result.Amount,
			Currency:        result.Currency,
		},
	}, nil
}

func (h Handler) CaptureStripeHandler(
	ctx context.Context,
	transactionID string,
	req httptransport.StripeCaptureRequest,
) (httptransport.CaptureResponse, error) {
	payment, err := h.Service.CaptureStripe(ctx, application.StripeCaptureInput{
		TransactionID:   transactionID,
		PaymentIntentID: req.PaymentIntentID,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return httptransport.CaptureResponse{}, err
	}
	return httptransport.CaptureResponse{
		Status: "success",
		Data: httptransport.CaptureData{
			TransactionID: transactionID,
			PaymentID:     payment.ID,
			Amount:        payment.Amount,
			Currency:      payment.Currency,
			Status:        payment.Status,
			CapturedAt:    formatTime(payment.CapturedAt),
		},
	}, nil
}

// parseDueDate accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: due_date %q", domainerrors.ErrInvalidCheckout, raw)
	}
	return parsed.UTC(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
