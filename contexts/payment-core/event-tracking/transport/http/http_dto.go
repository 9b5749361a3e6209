package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TransactionRecordDTO struct {
	RecordID          int64          `json:"record_id"`
	TransactionID     string         `json:"transaction_id"`
	EventID           string         `json:"event_id"`
	EventType         string         `json:"event_type"`
	Processor         string         `json:"processor"`
	ResourceID        string         `json:"resource_id"`
	Status            string         `json:"status"`
	ProcessorStatus   string         `json:"processor_status,omitempty"`
	Amount            *float64       `json:"amount,omitempty"`
	Currency          string         `json:"currency,omitempty"`
	CustomerID        string         `json:"customer_id,omitempty"`
	ProcessorMetadata map[string]any `json:"processor_metadata"`
	Metadata          map[string]any `json:"metadata"`
	ParentEventID     string         `json:"parent_event_id,omitempty"`
	CreatedAt         string         `json:"created_at"`
	RecordedAt        string         `json:"recorded_at"`
}

type TransactionResponse struct {
	Status string               `json:"status"`
	Data   TransactionRecordDTO `json:"data"`
}

type TransactionListResponse struct {
	Status string                 `json:"status"`
	Data   []TransactionRecordDTO `json:"data"`
}

type CustomerTransactionsRequest struct {
	CustomerID string
	Limit      int
	Offset     int
}

type ResourceRecordsRequest struct {
	ResourceID string
	Processor  string
}
