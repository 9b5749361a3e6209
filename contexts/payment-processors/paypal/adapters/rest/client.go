package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"seamless/contexts/payment-processors/paypal/domain/entities"
	domainerrors "seamless/contexts/payment-processors/paypal/domain/errors"
	"seamless/internal/platform/vendorhttp"
)

const (
	SandboxBaseURL    = "https://api.sandbox.paypal.com"
	ProductionBaseURL = "https://api.paypal.com"

	idempotencyHeader = "PayPal-Request-Id"
	dateLayout        = "2006-01-02"
)

type Config struct {
	ClientID     string
	ClientSecret string
	// Environment is "sandbox" or "production"; BaseURL overrides it.
	Environment string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	RateLimit   float64
	RateBurst   int
	HTTPClient  *http.Client
}

func (c Config) baseURL() (string, error) {
	if strings.TrimSpace(c.BaseURL) != "" {
		return c.BaseURL, nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "sandbox":
		return SandboxBaseURL, nil
	case "production", "live":
		return ProductionBaseURL, nil
	default:
		return "", fmt.Errorf("%w: unknown environment %q", domainerrors.ErrNotConfigured, c.Environment)
	}
}

// Client talks to the PayPal REST API. Each client caches its own OAuth
// token and refreshes it when PayPal answers 401.
type Client struct {
	api    *vendorhttp.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("%w: client id and secret are required", domainerrors.ErrNotConfigured)
	}
	base, err := cfg.baseURL()
	if err != nil {
		return nil, err
	}

	tokens := &tokenSource{clientID: cfg.ClientID, clientSecret: cfg.ClientSecret}
	api, err := vendorhttp.New(vendorhttp.Options{
		BaseURL:           base,
		HTTPClient:        cfg.HTTPClient,
		Timeout:           cfg.Timeout,
		MaxRetries:        cfg.MaxRetries,
		RateLimit:         cfg.RateLimit,
		RateBurst:         cfg.RateBurst,
		IdempotencyHeader: idempotencyHeader,
		Headers:           map[string]string{"Prefer": "return=representation"},
		Auth:              tokens,
		Logger:            logger,
		Module:            "payment-processors/paypal",
	})
	if err != nil {
		return nil, err
	}
	tokens.api = api
	return &Client{api: api, logger: logger}, nil
}

type tokenSource struct {
	api          *vendorhttp.Client
	clientID     string
	clientSecret string

	mu    sync.Mutex
	token string
}

func (t *tokenSource) Authorize(ctx context.Context, req *http.Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token == "" {
		if err := t.fetchLocked(ctx); err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", "Bearer "+t.token)
	return nil
}

func (t *tokenSource) Refresh(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	return t.fetchLocked(ctx)
}

func (t *tokenSource) fetchLocked(ctx context.Context) error {
	credentials := base64.StdEncoding.EncodeToString([]byte(t.clientID + ":" + t.clientSecret))
	var body struct {
		AccessToken string `json:"access_token"`
	}
	err := t.api.Do(ctx, vendorhttp.Request{
		Method: http.MethodPost,
		Path:   "/v1/oauth2/token",
		Form:   url.Values{"grant_type": {"client_credentials"}},
		NoAuth: true,
		Headers: map[string]string{
			"Authorization":   "Basic " + credentials,
			"Accept-Language": "en_US",
		},
	}, &body)
	if err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrAuthentication, err)
	}
	if body.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", domainerrors.ErrAuthentication)
	}
	t.token = body.AccessToken
	return nil
}

func (c *Client) CreateInvoice(
	ctx context.Context,
	request entities.InvoiceRequest,
	issuedAt time.Time,
) (entities.Invoice, map[string]any, error) {
	payload := buildInvoicePayload(request, issuedAt)
	raw := map[string]any{}
	if err := c.api.Do(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           "/v2/invoicing/invoices",
		JSON:           payload,
		IdempotencyKey: vendorhttp.TimestampKey("INV", issuedAt),
	}, &raw); err != nil {
		return entities.Invoice{}, nil, err
	}
	invoice, err := parseInvoice(raw)
	if err != nil {
		return entities.Invoice{}, raw, err
	}
	return invoice, raw, nil
}

func (c *Client) CreateOrder(
	ctx context.Context,
	invoice entities.Invoice,
	experience entities.ExperienceContext,
) (entities.Order, map[string]any, error) {
	payload := orderPayload{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: invoice.ID,
			Description: "Payment for invoice " + invoice.ID,
			Amount: money{
				CurrencyCode: invoice.Currency,
				Value:        formatAmount(invoice.AmountDue),
			},
		}},
	}
	payload.PaymentSource.PayPal.ExperienceContext = experienceContext{
		BrandName:               experience.BrandName,
		Locale:                  "en-US",
		LandingPage:             "LOGIN",
		UserAction:              "PAY_NOW",
		ReturnURL:               experience.ReturnURL,
		CancelURL:               experience.CancelURL,
		PaymentMethodPreference: "IMMEDIATE_PAYMENT_REQUIRED",
	}

	var body orderResponse
	raw, err := c.doDecode(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           "/v2/checkout/orders",
		JSON:           payload,
		IdempotencyKey: invoice.ID,
	}, &body)
	if err != nil {
		return entities.Order{}, nil, err
	}

	order := entities.Order{
		ID:        body.ID,
		InvoiceID: invoice.ID,
		Status:    body.Status,
		Amount:    invoice.AmountDue,
		Currency:  invoice.Currency,
	}
	if len(body.PurchaseUnits) > 0 {
		if value, err := parseAmount(body.PurchaseUnits[0].Amount.Value); err == nil {
			order.Amount = value
		}
		if code := body.PurchaseUnits[0].Amount.CurrencyCode; code != "" {
			order.Currency = code
		}
	}
	for _, link := range body.Links {
		if link.Rel == "payer-action" {
			order.ApprovalURL = link.Href
			break
		}
	}
	if order.ApprovalURL == "" {
		return order, raw, domainerrors.ErrApprovalLinkMissing
	}
	return order, raw, nil
}

func (c *Client) CaptureOrder(
	ctx context.Context,
	orderID string,
	invoiceID string,
) (entities.Capture, map[string]any, error) {
	var body captureResponse
	raw, err := c.doDecode(ctx, vendorhttp.Request{
		Method:         http.MethodPost,
		Path:           "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture",
		JSON:           struct{}{},
		IdempotencyKey: invoiceID,
	}, &body)
	if err != nil {
		return entities.Capture{}, nil, err
	}

	capture := entities.Capture{
		PaymentID: body.ID,
		OrderID:   orderID,
		InvoiceID: invoiceID,
		Status:    body.Status,
	}
	if body.Status != "COMPLETED" {
		return capture, raw, fmt.Errorf("%w: status %s", domainerrors.ErrCaptureIncomplete, body.Status)
	}
	if len(body.PurchaseUnits) == 0 || len(body.PurchaseUnits[0].Payments.Captures) == 0 {
		return capture, raw, fmt.Errorf("%w: response has no captures", domainerrors.ErrCaptureIncomplete)
	}
	captured := body.PurchaseUnits[0].Payments.Captures[0]
	amount, err := parseAmount(captured.Amount.Value)
	if err != nil {
		return capture, raw, err
	}
	capture.CaptureID = captured.ID
	capture.Amount = amount
	capture.Currency = captured.Amount.CurrencyCode
	return capture, raw, nil
}

// doDecode decodes the response twice: into the typed body and into a raw
// map kept as processor metadata.
func (c *Client) doDecode(ctx context.Context, req vendorhttp.Request, out any) (map[string]any, error) {
	var raw json.RawMessage
	if err := c.api.Do(ctx, req, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Path, err)
	}
	generic := map[string]any{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Path, err)
	}
	return generic, nil
}

func buildInvoicePayload(request entities.InvoiceRequest, issuedAt time.Time) invoicePayload {
	given, surname := splitName(request.Customer.Name)
	due := request.DueDate
	if due.IsZero() {
		due = issuedAt.Add(entities.DefaultDueIn)
	}
	termType := "DUE_ON_DATE_SPECIFIED"
	if int(due.Sub(issuedAt).Hours()/24) == 10 {
		termType = "NET_10"
	}
	notes := request.Notes
	if notes == "" {
		notes = "Thank you for your business"
	}

	payload := invoicePayload{
		Detail: invoiceDetail{
			InvoiceNumber: "INV-" + strconv.FormatInt(issuedAt.Unix(), 10),
			CurrencyCode:  request.Currency,
			Note:          notes,
			Terms:         "Payment due upon receipt",
			InvoiceDate:   issuedAt.Format(dateLayout),
			PaymentTerm: paymentTerm{
				TermType: termType,
				DueDate:  due.Format(dateLayout),
			},
		},
		PrimaryRecipients: []recipient{{
			BillingInfo: billingInfo{
				Name:         personName{GivenName: given, Surname: surname},
				EmailAddress: request.Customer.Email,
				Phones:       formatPhones(request.Customer.Phone),
			},
		}},
	}
	for _, item := range request.Items {
		payload.Items = append(payload.Items, invoiceItem{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    strconv.Itoa(item.Quantity),
			UnitAmount: money{
				CurrencyCode: request.Currency,
				Value:        formatAmount(item.Price),
			},
			UnitOfMeasure: "QUANTITY",
		})
	}
	return payload
}

func parseInvoice(raw map[string]any) (entities.Invoice, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return entities.Invoice{}, err
	}
	var body invoiceResponse
	if err := json.Unmarshal(encoded, &body); err != nil {
		return entities.Invoice{}, fmt.Errorf("decode invoice response: %w", err)
	}
	if body.ID == "" {
		return entities.Invoice{}, errors.New("invoice response has no id")
	}
	amount, err := parseAmount(body.Amount.Value)
	if err != nil {
		return entities.Invoice{}, err
	}
	invoice := entities.Invoice{
		ID:        body.ID,
		Number:    body.Detail.InvoiceNumber,
		Status:    body.Status,
		AmountDue: amount,
		Currency:  body.Amount.CurrencyCode,
	}
	if body.PaymentTerm != nil && body.PaymentTerm.DueDate != "" {
		if due, err := time.Parse(dateLayout, body.PaymentTerm.DueDate); err == nil {
			invoice.DueDate = due
		}
	}
	return invoice, nil
}

func splitName(name string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(name), " ", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		return parts[0], strings.TrimSpace(parts[1])
	}
	return parts[0], parts[0]
}

// formatPhones keeps the last ten digits as a US mobile number.
func formatPhones(phone string) []phoneNumber {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	number := digits.String()
	if number == "" {
		return nil
	}
	if len(number) > 10 {
		number = number[len(number)-10:]
	}
	return []phoneNumber{{CountryCode: "1", NationalNumber: number, PhoneType: "MOBILE"}}
}

func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func parseAmount(value string) (float64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, errors.New("amount value is missing")
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}
