package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"seamless/contexts/payment-processors/stripe/domain/entities"
	domainerrors "seamless/contexts/payment-processors/stripe/domain/errors"
	"seamless/internal/platform/vendorhttp"
)

const (
	DefaultBaseURL    = "https://api.stripe.com"
	DefaultAPIVersion = "2023-08-16"

	idempotencyHeader = "Idempotency-Key"
)

type Config struct {
	APIKey     string
	APIVersion string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64
	RateBurst  int
	HTTPClient *http.Client
}

// Client talks to the Stripe REST API with form-encoded bodies.
type Client struct {
	api *vendorhttp.Client
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", domainerrors.ErrNotConfigured)
	}
	base := cfg.BaseURL
	if strings.TrimSpace(base) == "" {
		base = DefaultBaseURL
	}
	version := cfg.APIVersion
	if strings.TrimSpace(version) == "" {
		version = DefaultAPIVersion
	}

	api, err := vendorhttp.New(vendorhttp.Options{
		BaseURL:           base,
		HTTPClient:        cfg.HTTPClient,
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
		IdempotencyHeader: idempotencyHeader,
		Headers: map[string]string{
			"Authorization":  "Bearer " + cfg.APIKey,
			"Stripe-Version": version,
		},
		Logger: logger,
		Module: "payment-processors/stripe",
	})
	if err != nil {
		return nil, err
	}
	return &Client{api: api}, nil
}

func (c *Client) SearchCustomerByEmail(ctx context.Context, email string) (entities.Customer, bool, error) {
	var body struct {
		Data []customerResponse `json:"data"`
	}
	err := c.api.Do(ctx, vendorhttp.Request{
		Method: http.MethodGet,
		Path:   "/v1/customers/search",
		Query:  url.Values{"query": {"email:'" + strings.ReplaceAll(email, "'", `\'`) + "'"}},
	}, &body)
	if err != nil {
		return entities.Customer{}, false, err
	}
	if len(body.Data) == 0 {
		return entities.Customer{}, false, nil
	}
	return body.Data[0].toEntity(), true, nil
}

func (c *Client) GetCustomer(ctx context.Context, customerID string) (entities.Customer, error) {
	var body customerResponse
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method: http.MethodGet,
		Path:   "/v1/customers/" + url.PathEscape(customerID),
	}, &body); err != nil {
		if vendorhttp.StatusCode(err) == http.StatusNotFound {
			return entities.Customer{}, fmt.Errorf("%w: %w", domainerrors.ErrCustomerNotFound, err)
		}
		return entities.Customer{}, err
	}
	return body.toEntity(), nil
}

func (c *Client) CreateCustomer(
	ctx context.Context,
	request entities.CustomerRequest,
	idempotencyKey string,
) (entities.Customer, error) {
	form := vendorhttp.NewForm().
		Set("name", request.Name).
		Set("email", request.Email).
		Set("phone", request.Phone).
		SetMap("metadata", anyMap(request.Metadata))

	var body customerResponse
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           "/v1/customers",
		Form:           form.Values(),
		IdempotencyKey: idempotencyKey,
	}, &body); err != nil {
		return entities.Customer{}, err
	}
	return body.toEntity(), nil
}

func (c *Client) CreateDraftInvoice(
	ctx context.Context,
	request entities.InvoiceRequest,
	idempotencyKey string,
) (entities.Invoice, error) {
	collection := request.CollectionMethod
	if collection == "" {
		collection = entities.CollectionChargeAutomatically
	}
	description := request.Description
	if description == "" {
		description = "Invoice"
	}
	form := vendorhttp.NewForm().
		Set("customer", request.Customer.ID).
		SetBool("auto_advance", false).
		Set("collection_method", collection).
		Set("currency", request.Currency).
		Set("description", description).
		SetMap("metadata", anyMap(request.Metadata))
	if !request.DueDate.IsZero() && collection == entities.CollectionSendInvoice {
		form.SetInt("due_date", request.DueDate.Unix())
	}

	var body invoiceResponse
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           "/v1/invoices",
		Form:           form.Values(),
		IdempotencyKey: idempotencyKey,
	}, &body); err != nil {
		return entities.Invoice{}, err
	}
	return body.toEntity(), nil
}

func (c *Client) CreateInvoiceItem(
	ctx context.Context,
	invoice entities.Invoice,
	item entities.Item,
	metadata map[string]string,
	idempotencyKey string,
) (entities.InvoiceItem, error) {
	description := item.Description
	if description == "" {
		description = item.Name
	}
	form := vendorhttp.NewForm().
		Set("customer", invoice.CustomerID).
		Set("invoice", invoice.ID).
		SetInt("amount", entities.ToCents(item.Total())).
		Set("currency", invoice.Currency).
		Set("description", description).
		SetMap("metadata", anyMap(metadata))

	var body struct {
		ID       string `json:"id"`
		Invoice  string `json:"invoice"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           "/v1/invoiceitems",
		Form:           form.Values(),
		IdempotencyKey: idempotencyKey,
	}, &body); err != nil {
		return entities.InvoiceItem{}, err
	}
	return entities.InvoiceItem{
		ID:        body.ID,
		InvoiceID: body.Invoice,
		Amount:    entities.FromCents(body.Amount),
		Currency:  body.Currency,
	}, nil
}

func (c *Client) FinalizeInvoice(ctx context.Context, invoiceID string) (entities.Invoice, error) {
	var body invoiceResponse
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method: http.MethodPost,
		Path:   "/v1/invoices/" + url.PathEscape(invoiceID) + "/finalize",
		Form:   url.Values{},
	}, &body); err != nil {
		return entities.Invoice{}, err
	}
	return body.toEntity(), nil
}

// CreatePaymentIntent opens a card intent with manual capture so funds are
// only moved by CapturePaymentIntent.
func (c *Client) CreatePaymentIntent(
	ctx context.Context,
	request entities.PaymentIntentRequest,
	idempotencyKey string,
) (entities.PaymentIntent, error) {
	form := vendorhttp.NewForm().
		SetInt("amount", entities.ToCents(request.Amount)).
		Set("currency", request.Currency).
		Set("customer", request.CustomerID).
		Set("description", request.Description).
		SetList("payment_method_types", []string{"card"}).
		SetBool("confirm", false).
		Set("capture_method", "manual").
		SetMap("metadata", map[string]any{"invoice_id": request.InvoiceID})
	return c.paymentIntentCall(ctx, "/v1/payment_intents", form.Values(), idempotencyKey)
}

func (c *Client) UpdatePaymentIntent(
	ctx context.Context,
	paymentIntentID string,
	paymentMethodID string,
) (entities.PaymentIntent, error) {
	form := vendorhttp.NewForm().Set("payment_method", paymentMethodID)
	return c.paymentIntentCall(ctx, "/v1/payment_intents/"+url.PathEscape(paymentIntentID), form.Values(), "")
}

func (c *Client) ConfirmPaymentIntent(ctx context.Context, paymentIntentID string) (entities.PaymentIntent, error) {
	return c.paymentIntentCall(ctx, "/v1/payment_intents/"+url.PathEscape(paymentIntentID)+"/confirm", url.Values{}, "")
}

func (c *Client) CapturePaymentIntent(ctx context.Context, paymentIntentID string) (entities.PaymentIntent, error) {
	return c.paymentIntentCall(ctx, "/v1/payment_intents/"+url.PathEscape(paymentIntentID)+"/capture", url.Values{}, "")
}

func (c *Client) paymentIntentCall(
	ctx context.Context,
	path string,
	form url.Values,
	idempotencyKey string,
) (entities.PaymentIntent, error) {
	var body paymentIntentResponse
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           path,
		Form:           form,
		IdempotencyKey: idempotencyKey,
	}, &body); err != nil {
		return entities.PaymentIntent{}, err
	}
	return body.toEntity(), nil
}

type customerResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Created int64  `json:"created"`
}

func (r customerResponse) toEntity() entities.Customer {
	return entities.Customer{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		CreatedAt: unixTime(r.Created),
	}
}

type invoiceResponse struct {
	ID               string `json:"id"`
	Number           string `json:"number"`
	Status           string `json:"status"`
	Customer         string `json:"customer"`
	AmountDue        int64  `json:"amount_due"`
	AmountPaid       int64  `json:"amount_paid"`
	Currency         string `json:"currency"`
	DueDate          int64  `json:"due_date"`
	Created          int64  `json:"created"`
	HostedInvoiceURL string `json:"hosted_invoice_url"`
	InvoicePDF       string `json:"invoice_pdf"`
	PaymentIntent    string `json:"payment_intent"`
}

func (r invoiceResponse) toEntity() entities.Invoice {
	return entities.Invoice{
		ID:               r.ID,
		Number:           r.Number,
		Status:           r.Status,
		CustomerID:       r.Customer,
		AmountDue:        entities.FromCents(r.AmountDue),
		AmountPaid:       entities.FromCents(r.AmountPaid),
		Currency:         r.Currency,
		DueDate:          unixTime(r.DueDate),
		CreatedAt:        unixTime(r.Created),
		HostedInvoiceURL: r.HostedInvoiceURL,
		InvoicePDF:       r.InvoicePDF,
		PaymentIntentID:  r.PaymentIntent,
	}
}

type paymentIntentResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	ClientSecret   string `json:"client_secret"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Currency       string `json:"currency"`
	Customer       string `json:"customer"`
	PaymentMethod  string `json:"payment_method"`
}

func (r paymentIntentResponse) toEntity() entities.PaymentIntent {
	return entities.PaymentIntent{
		ID:              r.ID,
		Status:          r.Status,
		ClientSecret:    r.ClientSecret,
		Amount:          entities.FromCents(r.Amount),
		AmountReceived:  entities.FromCents(r.AmountReceived),
		Currency:        r.Currency,
		CustomerID:      r.Customer,
		PaymentMethodID: r.PaymentMethod,
	}
}

func unixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

func anyMap(values map[string]string) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
