package entities

import (
	"fmt"
	"maps"
	"strings"
	"time"

	domainerrors "seamless/contexts/payment-processors/paypal/domain/errors"
)

const (
	CurrencyUSD = "USD"
	CurrencyINR = "INR"

	DefaultDueIn = 10 * 24 * time.Hour
)

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Item struct {
	Name        string
	Description string
	Quantity    int
	Price       float64
	SKU         string
}

// InvoiceRequest is a typed PayPal invoice draft. A zero DueDate means ten
// days after issue.
type InvoiceRequest struct {
	Customer Customer
	Items    []Item
	Currency string
	DueDate  time.Time
	Notes    string
	Metadata map[string]string
}

func (r InvoiceRequest) Validate(now time.Time) error {
	if len(strings.TrimSpace(r.Customer.Name)) < 2 {
		return fmt.Errorf("%w: customer name is required", domainerrors.ErrInvalidInvoice)
	}
	if !strings.Contains(r.Customer.Email, "@") {
		return fmt.Errorf("%w: customer email is invalid", domainerrors.ErrInvalidInvoice)
	}
	switch r.Currency {
	case CurrencyUSD, CurrencyINR:
	default:
		return fmt.Errorf("%w: unsupported currency %q", domainerrors.ErrInvalidInvoice, r.Currency)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", domainerrors.ErrInvalidInvoice)
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", domainerrors.ErrInvalidInvoice, i)
		}
		if item.Quantity < 1 || item.Quantity > 1000 {
			return fmt.Errorf("%w: item %d quantity must be between 1 and 1000", domainerrors.ErrInvalidInvoice, i)
		}
		if item.Price <= 0 {
			return fmt.Errorf("%w: item %d price must be positive", domainerrors.ErrInvalidInvoice, i)
		}
	}
	if !r.DueDate.IsZero() && !r.DueDate.After(now) {
		return fmt.Errorf("%w: due date must be in the future", domainerrors.ErrInvalidInvoice)
	}
	return nil
}

func (r InvoiceRequest) Total() float64 {
	var total float64
	for _, item := range r.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// InvoiceBuilder assembles an InvoiceRequest step by step.
type InvoiceBuilder struct {
	request InvoiceRequest
}

func NewInvoiceBuilder(customer Customer) *InvoiceBuilder {
	return &InvoiceBuilder{request: InvoiceRequest{
		Customer: customer,
		Currency: CurrencyUSD,
	}}
}

func (b *InvoiceBuilder) AddItem(name string, quantity int, price float64) *InvoiceBuilder {
	b.request.Items = append(b.request.Items, Item{Name: name, Quantity: quantity, Price: price})
	return b
}

func (b *InvoiceBuilder) AddDetailedItem(item Item) *InvoiceBuilder {
	b.request.Items = append(b.request.Items, item)
	return b
}

func (b *InvoiceBuilder) Currency(code string) *InvoiceBuilder {
	b.request.Currency = strings.ToUpper(strings.TrimSpace(code))
	return b
}

func (b *InvoiceBuilder) DueOn(due time.Time) *InvoiceBuilder {
	b.request.DueDate = due
	return b
}

func (b *InvoiceBuilder) Notes(notes string) *InvoiceBuilder {
	b.request.Notes = notes
	return b
}

func (b *InvoiceBuilder) Metadata(key string, value string) *InvoiceBuilder {
	if b.request.Metadata == nil {
		b.request.Metadata = map[string]string{}
	}
	b.request.Metadata[key] = value
	return b
}

func (b *InvoiceBuilder) Build(now time.Time) (InvoiceRequest, error) {
	request := b.request
	request.Items = append([]Item(nil), b.request.Items...)
	request.Metadata = maps.Clone(b.request.Metadata)
	if err := request.Validate(now); err != nil {
		return InvoiceRequest{}, err
	}
	return request, nil
}

type Invoice struct {
	ID        string
	Number    string
	Status    string
	AmountDue float64
	Currency  string
	DueDate   time.Time
}

// ExperienceContext is the buyer checkout experience attached to an order.
type ExperienceContext struct {
	BrandName string
	ReturnURL string
	CancelURL string
}

type Order struct {
	ID          string
	InvoiceID   string
	Status      string
	ApprovalURL string
	Amount      float64
	Currency    string
}

type Capture struct {
	PaymentID  string
	OrderID    string
	InvoiceID  string
	CaptureID  string
	Amount     float64
	Currency   string
	Status     string
	CapturedAt time.Time
}
