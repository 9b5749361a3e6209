package http

type CustomerDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ItemDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

type PayPalCheckoutRequest struct {
	Customer CustomerDTO       `json:"customer"`
	Items    []ItemDTO         `json:"items"`
	Currency string            `json:"currency,omitempty"`
	DueDate  string            `json:"due_date,omitempty"`
	Notes    string            `json:"notes,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type PayPalCheckoutData struct {
	TransactionID string  `json:"transaction_id"`
	InvoiceID     string  `json:"invoice_id"`
	OrderID       string  `json:"order_id"`
	ApprovalURL   string  `json:"approval_url"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

type PayPalCheckoutResponse struct {
	Status string             `json:"status"`
	Data   PayPalCheckoutData `json:"data"`
}

type PayPalCaptureRequest struct {
	OrderID   string `json:"order_id"`
	InvoiceID string `json:"invoice_id"`
}

type StripeCheckoutRequest struct {
	Customer         CustomerDTO       `json:"customer"`
	Items            []ItemDTO         `json:"items"`
	Currency         string            `json:"currency,omitempty"`
	Description      string            `json:"description,omitempty"`
	DueDate          string            `json:"due_date,omitempty"`
	CollectionMethod string            `json:"collection_method,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

type StripeCheckoutData struct {
	TransactionID   string  `json:"transaction_id"`
	CustomerID      string  `json:"customer_id"`
	CustomerOutcome string  `json:"customer_outcome"`
	InvoiceID       string  `json:"invoice_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	ClientSecret    string  `json:"client_secret"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

type StripeCheckoutResponse struct {
	Status string             `json:"status"`
	Data   StripeCheckoutData `json:"data"`
}

type StripeCaptureRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

type CaptureData struct {
	TransactionID string  `json:"transaction_id"`
	PaymentID     string  `json:"payment_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	CapturedAt    string  `json:"captured_at,omitempty"`
}

type CaptureResponse struct {
	Status string      `json:"status"`
	Data   CaptureData `json:"data"`
}
