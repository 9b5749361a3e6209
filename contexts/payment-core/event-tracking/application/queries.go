package application

import (
	"context"
	"fmt"
	"strings"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/contexts/payment-core/event-tracking/ports"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// QueryService reads the audit trail. Store is resolved on every call so the
// service can be built before the recorder is initialized.
type QueryService struct {
	Store func() ports.TransactionStore
}

func (q QueryService) store() (ports.TransactionStore, error) {
	if q.Store == nil {
		return nil, domainerrors.ErrStoreNotInitialized
	}
	store := q.Store()
	if store == nil {
		return nil, domainerrors.ErrStoreNotInitialized
	}
	return store, nil
}

func (q QueryService) GetTransaction(ctx context.Context, transactionID string, processor entities.Processor) (entities.TransactionRecord, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" || !processor.Valid() {
		return entities.TransactionRecord{}, domainerrors.ErrInvalidQuery
	}
	store, err := q.store()
	if err != nil {
		return entities.TransactionRecord{}, err
	}
	return store.GetTransaction(ctx, transactionID, processor)
}

// ListTransactionEvents returns the causal chain of a transaction, ordered so
// every record follows its parent.
func (q QueryService) ListTransactionEvents(ctx context.Context, transactionID string) ([]entities.TransactionRecord, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, domainerrors.ErrInvalidQuery
	}
	store, err := q.store()
	if err != nil {
		return nil, err
	}
	records, err := store.ListTransactionRecords(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domainerrors.ErrTransactionNotFound
	}
	return OrderByCausalChain(records), nil
}

func (q QueryService) GetTransactionsByCustomer(ctx context.Context, customerID string, limit int, offset int) ([]entities.TransactionRecord, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || offset < 0 {
		return nil, domainerrors.ErrInvalidQuery
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	store, err := q.store()
	if err != nil {
		return nil, err
	}
	return store.GetTransactionsByCustomer(ctx, customerID, limit, offset)
}

func (q QueryService) GetResourceRecords(ctx context.Context, resourceID string, processor entities.Processor) ([]entities.TransactionRecord, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" || !processor.Valid() {
		return nil, domainerrors.ErrInvalidQuery
	}
	store, err := q.store()
	if err != nil {
		return nil, err
	}
	return store.GetResourceRecords(ctx, resourceID, processor)
}

// OrderByCausalChain walks parent links from the root record. Records whose
// parent is missing from the set start new chains, in store order; so do
// siblings that share a parent.
func OrderByCausalChain(records []entities.TransactionRecord) []entities.TransactionRecord {
	children := make(map[string][]entities.TransactionRecord, len(records))
	present := make(map[string]struct{}, len(records))
	for _, record := range records {
		present[record.EventID] = struct{}{}
	}

	var roots []entities.TransactionRecord
	for _, record := range records {
		if _, ok := present[record.ParentEventID]; record.ParentEventID == "" || !ok {
			roots = append(roots, record)
			continue
		}
		children[record.ParentEventID] = append(children[record.ParentEventID], record)
	}

	ordered := make([]entities.TransactionRecord, 0, len(records))
	visited := make(map[string]struct{}, len(records))
	var walk func(record entities.TransactionRecord)
	walk = func(record entities.TransactionRecord) {
		if _, seen := visited[record.EventID]; seen {
			return
		}
		visited[record.EventID] = struct{}{}
		ordered = append(ordered, record)
		for _, child := range children[record.EventID] {
			walk(child)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	// Cycles have no root; keep them rather than dropping records.
	for _, record := range records {
		walk(record)
	}
	return ordered
}

func ParseProcessor(raw string) (entities.Processor, error) {
	processor := entities.Processor(strings.ToLower(strings.TrimSpace(raw)))
	if !processor.Valid() {
		return "", fmt.Errorf("%w: unknown processor %q", domainerrors.ErrInvalidQuery, raw)
	}
	return processor, nil
}
