package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"seamless/contexts/payment-core/event-tracking/application"
	"seamless/contexts/payment-core/event-tracking/domain/entities"
	httptransport "seamless/contexts/payment-core/event-tracking/transport/http"
)

type Handler struct {
	Queries application.QueryService
	Logger  *slog.Logger
}

func (h Handler) GetTransactionHandler(ctx context.Context, transactionID string, processor string) (httptransport.TransactionResponse, error) {
	parsed, err := application.ParseProcessor(processor)
	if err != nil {
		return httptransport.TransactionResponse{}, err
	}
	record, err := h.Queries.GetTransaction(ctx, transactionID, parsed)
	if err != nil {
		return httptransport.TransactionResponse{}, err
	}
	return httptransport.TransactionResponse{
		Status: "success",
		Data:   toDTO(record),
	}, nil
}

func (h Handler) ListTransactionEventsHandler(ctx context.Context, transactionID string) (httptransport.TransactionListResponse, error) {
	records, err := h.Queries.ListTransactionEvents(ctx, transactionID)
	if err != nil {
		return httptransport.TransactionListResponse{}, err
	}
	return toListResponse(records), nil
}

func (h Handler) CustomerTransactionsHandler(
	ctx context.Context,
	req httptransport.CustomerTransactionsRequest,
) (httptransport.TransactionListResponse, error) {
	records, err := h.Queries.GetTransactionsByCustomer(ctx, req.CustomerID, req.Limit, req.Offset)
	if err != nil {
		return httptransport.TransactionListResponse{}, err
	}
	return toListResponse(records), nil
}

func (h Handler) ResourceRecordsHandler(
	ctx context.Context,
	req httptransport.ResourceRecordsRequest,
) (httptransport.TransactionListResponse, error) {
	processor, err := application.ParseProcessor(req.Processor)
	if err != nil {
		return httptransport.TransactionListResponse{}, err
	}
	records, err := h.Queries.GetResourceRecords(ctx, req.ResourceID, processor)
	if err != nil {
		return httptransport.TransactionListResponse{}, err
	}
	return toListResponse(records), nil
}

func toListResponse(records []entities.TransactionRecord) httptransport.TransactionListResponse {
	resp := httptransport.TransactionListResponse{
		Status: "success",
		Data:   make([]httptransport.TransactionRecordDTO, 0, len(records)),
	}
	for _, record := range records {
		resp.Data = append(resp.Data, toDTO(record))
	}
	return resp
}

func toDTO(record entities.TransactionRecord) httptransport.TransactionRecordDTO {
	return httptransport.TransactionRecordDTO{
		RecordID:          record.ID,
		TransactionID:     record.TransactionID,
		EventID:           record.EventID,
		EventType:         string(record.EventType),
		Processor:         string(record.Processor),
		ResourceID:        record.ResourceID,
		Status:            string(record.Status),
		ProcessorStatus:   record.ProcessorStatus,
		Amount:            record.Amount,
		Currency:          record.Currency,
		CustomerID:        record.CustomerID,
		ProcessorMetadata: record.ProcessorMetadata,
		Metadata:          record.Metadata,
		ParentEventID:     record.ParentEventID,
		CreatedAt:         record.CreatedAt.UTC().Format(time.RFC3339Nano),
		RecordedAt:        record.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
}
