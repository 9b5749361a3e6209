package rest

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type invoicePayload struct {
	Detail            invoiceDetail `json:"detail"`
	PrimaryRecipients []recipient   `json:"primary_recipients"`
	Items             []invoiceItem `json:"items"`
}

type invoiceDetail struct {
	InvoiceNumber string      `json:"invoice_number"`
	CurrencyCode  string      `json:"currency_code"`
	Note          string      `json:"note"`
	Terms         string      `json:"terms"`
	InvoiceDate   string      `json:"invoice_date"`
	PaymentTerm   paymentTerm `json:"payment_term"`
}

type paymentTerm struct {
	TermType string `json:"term_type,omitempty"`
	DueDate  string `json:"due_date"`
}

type recipient struct {
	BillingInfo billingInfo `json:"billing_info"`
}

type billingInfo struct {
	Name         personName    `json:"name"`
	EmailAddress string        `json:"email_address"`
	Phones       []phoneNumber `json:"phones,omitempty"`
}

type personName struct {
	GivenName string `json:"given_name"`
	Surname   string `json:"surname"`
}

type phoneNumber struct {
	CountryCode    string `json:"country_code"`
	NationalNumber string `json:"national_number"`
	PhoneType      string `json:"phone_type"`
}

type invoiceItem struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Quantity      string `json:"quantity"`
	UnitAmount    money  `json:"unit_amount"`
	UnitOfMeasure string `json:"unit_of_measure"`
}

type invoiceResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Detail struct {
		InvoiceNumber string `json:"invoice_number"`
	} `json:"detail"`
	Amount      money        `json:"amount"`
	PaymentTerm *paymentTerm `json:"payment_term"`
}

type orderPayload struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	PaymentSource struct {
		PayPal struct {
			ExperienceContext experienceContext `json:"experience_context"`
		} `json:"paypal"`
	} `json:"payment_source"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	Description string `json:"description"`
	Amount      money  `json:"amount"`
}

type experienceContext struct {
	BrandName               string `json:"brand_name"`
	Locale                  string `json:"locale"`
	LandingPage             string `json:"landing_page"`
	UserAction              string `json:"user_action"`
	ReturnURL               string `json:"return_url"`
	CancelURL               string `json:"cancel_url"`
	PaymentMethodPreference string `json:"payment_method_preference"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount money `json:"amount"`
	} `json:"purchase_units"`
	Links []link `json:"links"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount money  `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}
