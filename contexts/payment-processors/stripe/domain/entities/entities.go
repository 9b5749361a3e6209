package entities

import (
	"fmt"
	"math"
	"strings"
	"time"

	domainerrors "seamless/contexts/payment-processors/stripe/domain/errors"
)

const (
	CurrencyUSD = "usd"
	CurrencyINR = "inr"

	CollectionChargeAutomatically = "charge_automatically"
	CollectionSendInvoice         = "send_invoice"

	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusRequiresCapture       = "requires_capture"
	StatusSucceeded             = "succeeded"
)

type CustomerRequest struct {
	Name     string
	Email    string
	Phone    string
	Metadata map[string]string
}

func (r CustomerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: customer name is required", domainerrors.ErrInvalidRequest)
	}
	if !strings.Contains(r.Email, "@") {
		return fmt.Errorf("%w: customer email is invalid", domainerrors.ErrInvalidRequest)
	}
	return nil
}

type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// CustomerOutcome tells callers whether CreateOrGetCustomer reused an
// existing customer or created a new one.
type CustomerOutcome string

const (
	CustomerFound   CustomerOutcome = "found"
	CustomerCreated CustomerOutcome = "created"
)

type CustomerResult struct {
	Customer Customer
	Outcome  CustomerOutcome
}

type Item struct {
	Name        string
	Description string
	Price       float64
	Quantity    int
}

func (i Item) Total() float64 {
	return i.Price * float64(i.Quantity)
}

type InvoiceRequest struct {
	Customer         Customer
	Items            []Item
	Currency         string
	DueDate          time.Time
	Description      string
	Metadata         map[string]string
	CollectionMethod string
}

func (r InvoiceRequest) Validate(now time.Time) error {
	if strings.TrimSpace(r.Customer.ID) == "" {
		return fmt.Errorf("%w: customer id is required", domainerrors.ErrInvalidRequest)
	}
	switch r.Currency {
	case CurrencyUSD, CurrencyINR:
	default:
		return fmt.Errorf("%w: unsupported currency %q", domainerrors.ErrInvalidRequest, r.Currency)
	}
	switch r.CollectionMethod {
	case "", CollectionChargeAutomatically, CollectionSendInvoice:
	default:
		return fmt.Errorf("%w: unknown collection method %q", domainerrors.ErrInvalidRequest, r.CollectionMethod)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domainerrors.ErrInvalidRequest)
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", domainerrors.ErrInvalidRequest, i)
		}
		if item.Price <= 0 || item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d needs a positive price and quantity", domainerrors.ErrInvalidRequest, i)
		}
	}
	if !r.DueDate.IsZero() && !r.DueDate.After(now) {
		return fmt.Errorf("%w: due date must be in the future", domainerrors.ErrInvalidRequest)
	}
	return nil
}

func (r InvoiceRequest) Total() float64 {
	var total float64
	for _, item := range r.Items {
		total += item.Total()
	}
	return total
}

type Invoice struct {
	ID               string
	Number           string
	Status           string
	CustomerID       string
	AmountDue        float64
	AmountPaid       float64
	Currency         string
	DueDate          time.Time
	CreatedAt        time.Time
	HostedInvoiceURL string
	InvoicePDF       string
	PaymentIntentID  string
}

type InvoiceItem struct {
	ID        string
	InvoiceID string
	Amount    float64
	Currency  string
}

type PaymentIntentRequest struct {
	InvoiceID   string
	CustomerID  string
	Amount      float64
	Currency    string
	Description string
}

type PaymentIntent struct {
	ID              string
	Status          string
	ClientSecret    string
	Amount          float64
	AmountReceived  float64
	Currency        string
	CustomerID      string
	PaymentMethodID string
}

type Payment struct {
	ID         string
	Amount     float64
	Currency   string
	Status     string
	CapturedAt time.Time
}

// DraftInvoiceKey is the idempotency key of a draft invoice created at now.
func DraftInvoiceKey(now time.Time) string {
	return fmt.Sprintf("DRAFT-INV-%d", now.Unix())
}

// InvoiceItemKey is the idempotency key of one line item.
func InvoiceItemKey(now time.Time, itemName string) string {
	return fmt.Sprintf("INVITEM-%d-%s", now.Unix(), strings.TrimSpace(itemName))
}

// ToCents converts a currency amount to Stripe's smallest unit.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
