package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainerrors "seamless/contexts/payment-core/checkout/domain/errors"
	"seamless/contexts/payment-core/checkout/ports"
	trackingapp "seamless/contexts/payment-core/event-tracking/application"
	paypalentities "seamless/contexts/payment-processors/paypal/domain/entities"
	stripeentities "seamless/contexts/payment-processors/stripe/domain/entities"
)

const moduleName = "payment-core/checkout"

// Service runs multi-step vendor flows inside one tracked transaction.
// Start* opens a transaction; Capture* resumes it after buyer approval so
// the capture event continues the same causal chain.
type Service struct {
	Transactions *trackingapp.Manager
	PayPal       ports.PayPalFlow
	Stripe       ports.StripeFlow
	Logger       *slog.Logger
}

type PayPalCheckoutInput struct {
	Invoice paypalentities.InvoiceRequest
}

type PayPalCheckout struct {
	TransactionID string
	InvoiceID     string
	OrderID       string
	ApprovalURL   string
	Status        string
	Amount        float64
	Currency      string
}

type PayPalCaptureInput struct {
	TransactionID string
	OrderID       string
	InvoiceID     string
}

type StripeCheckoutInput struct {
	Customer         stripeentities.CustomerRequest
	Items            []stripeentities.Item
	Currency         string
	Description      string
	DueDate          time.Time
	CollectionMethod string
	Metadata         map[string]string
}

type StripeCheckout struct {
	TransactionID   string
	CustomerID      string
	CustomerOutcome stripeentities.CustomerOutcome
	InvoiceID       string
	PaymentIntentID string
	ClientSecret    string
	Status          string
	Amount          float64
	Currency        string
}

type StripeCaptureInput struct {
	TransactionID   string
	PaymentIntentID string
	PaymentMethodID string
}

func (s Service) StartPayPal(ctx context.Context, input PayPalCheckoutInput) (PayPalCheckout, error) {
	if s.PayPal == nil || s.Transactions == nil {
		return PayPalCheckout{}, domainerrors.ErrProcessorUnavailable
	}
	tx, err := s.Transactions.Open(ctx)
	if err != nil {
		return PayPalCheckout{}, err
	}
	result, err := trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (PayPalCheckout, error) {
		invoice, err := s.PayPal.CreateInvoice(ctx, transactionID, input.Invoice)
		if err != nil {
			return PayPalCheckout{}, err
		}
		order, err := s.PayPal.CreateOrderFromInvoice(ctx, transactionID, invoice)
		if err != nil {
			return PayPalCheckout{}, err
		}
		return PayPalCheckout{
			TransactionID: transactionID,
			InvoiceID:     invoice.ID,
			OrderID:       order.ID,
			ApprovalURL:   order.ApprovalURL,
			Status:        order.Status,
			Amount:        order.Amount,
			Currency:      order.Currency,
		}, nil
	})
	tx.Close(err)
	s.logOutcome("paypal_checkout_started", tx.ID(), err)
	return result, err
}

func (s Service) CapturePayPal(ctx context.Context, input PayPalCaptureInput) (paypalentities.Capture, error) {
	if s.PayPal == nil || s.Transactions == nil {
		return paypalentities.Capture{}, domainerrors.ErrProcessorUnavailable
	}
	if strings.TrimSpace(input.OrderID) == "" || strings.TrimSpace(input.InvoiceID) == "" {
		return paypalentities.Capture{}, domainerrors.ErrInvalidCheckout
	}
	tx, err := s.Transactions.Resume(ctx, input.TransactionID)
	if err != nil {
		return paypalentities.Capture{}, err
	}
	capture, err := trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (paypalentities.Capture, error) {
		return s.PayPal.CaptureOrder(ctx, transactionID, input.OrderID, input.InvoiceID)
	})
	tx.Close(err)
	s.logOutcome("paypal_checkout_captured", tx.ID(), err)
	return capture, err
}

func (s Service) StartStripe(ctx context.Context, input StripeCheckoutInput) (StripeCheckout, error) {
	if s.Stripe == nil || s.Transactions == nil {
		return StripeCheckout{}, domainerrors.ErrProcessorUnavailable
	}
	currency := strings.ToLower(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = stripeentities.CurrencyUSD
	}
	tx, err := s.Transactions.Open(ctx)
	if err != nil {
		return StripeCheckout{}, err
	}
	result, err := trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (StripeCheckout, error) {
		customer, err := s.Stripe.CreateOrGetCustomer(ctx, transactionID, input.Customer)
		if err != nil {
			return StripeCheckout{}, err
		}
		invoice, err := s.Stripe.CreateInvoice(ctx, transactionID, stripeentities.InvoiceRequest{
			Customer:         customer.Customer,
			Items:            input.Items,
			Currency:         currency,
			DueDate:          input.DueDate,
			Description:      input.Description,
			Metadata:         input.Metadata,
			CollectionMethod: input.CollectionMethod,
		})
		if err != nil {
			return StripeCheckout{}, err
		}
		intent, err := s.Stripe.CreatePaymentIntentFromInvoice(ctx, transactionID, invoice)
		if err != nil {
			return StripeCheckout{}, err
		}
		return StripeCheckout{
			TransactionID:   transactionID,
			CustomerID:      customer.Customer.ID,
			CustomerOutcome: customer.Outcome,
			InvoiceID:       invoice.ID,
			PaymentIntentID: intent.ID,
			ClientSecret:    intent.ClientSecret,
			Status:          intent.Status,
			Amount:          invoice.AmountDue,
			Currency:        invoice.Currency,
		}, nil
	})
	tx.Close(err)
	s.logOutcome("stripe_checkout_started", tx.ID(), err)
	return result, err
}

// CaptureStripe attaches the payment method when one is given, then
// confirms and captures the intent.
func (s Service) CaptureStripe(ctx context.Context, input StripeCaptureInput) (stripeentities.Payment, error) {
	if s.Stripe == nil || s.Transactions == nil {
		return stripeentities.Payment{}, domainerrors.ErrProcessorUnavailable
	}
	if strings.TrimSpace(input.PaymentIntentID) == "" {
		return stripeentities.Payment{}, domainerrors.ErrInvalidCheckout
	}
	tx, err := s.Transactions.Resume(ctx, input.TransactionID)
	if err != nil {
		return stripeentities.Payment{}, err
	}
	payment, err := trackingapp.Run(ctx, tx, func(ctx context.Context, transactionID string) (stripeentities.Payment, error) {
		if strings.TrimSpace(input.PaymentMethodID) != "" {
			if _, err := s.Stripe.AttachPaymentMethod(ctx, transactionID, input.PaymentIntentID, input.PaymentMethodID); err != nil {
				return stripeentities.Payment{}, err
			}
		}
		return s.Stripe.ConfirmAndCapture(ctx, transactionID, input.PaymentIntentID)
	})
	tx.Close(err)
	s.logOutcome("stripe_checkout_captured", tx.ID(), err)
	return payment, err
}

func (s Service) logOutcome(event string, transactionID string, err error) {
	logger := trackingapp.ResolveLogger(s.Logger)
	if err != nil {
		logger.Warn("checkout step failed",
			"event", event+"_failed",
			"module", moduleName,
			"layer", "application",
			"transaction_id", transactionID,
			"error", err.Error(),
		)
		return
	}
	logger.Info("checkout step completed",
		"event", event,
		"module", moduleName,
		"layer", "application",
		"transaction_id", transactionID,
	)
}
