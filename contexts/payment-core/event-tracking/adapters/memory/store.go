package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/internal/shared/outbox"

	"github.com/google/uuid"
)

// Store keeps the record log in process memory. Records are never updated.
type Store struct {
	mu sync.RWMutex

	nextID  int64
	records []entities.TransactionRecord
	byEvent map[string]int
	cursors map[string]outbox.Cursor
	closed  bool
}

func NewStore() *Store {
	return &Store{
		byEvent: make(map[string]int),
		cursors: make(map[string]outbox.Cursor),
	}
}

func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, record entities.TransactionRecord) (entities.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entities.TransactionRecord{}, domainerrors.ErrStoreNotInitialized
	}
	eventID := strings.TrimSpace(record.EventID)
	if eventID == "" {
		return entities.TransactionRecord{}, domainerrors.ErrInvalidEvent
	}
	if _, exists := s.byEvent[eventID]; exists {
		return entities.TransactionRecord{}, domainerrors.ErrDuplicateEvent
	}

	s.nextID++
	record.ID = s.nextID
	record.EventID = eventID
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	record = cloneRecord(record)
	s.byEvent[eventID] = len(s.records)
	s.records = append(s.records, record)
	return cloneRecord(record), nil
}

func (s *Store) GetTransaction(_ context.Context, transactionID string, processor entities.Processor) (entities.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactionID = strings.TrimSpace(transactionID)
	for i := len(s.records) - 1; i >= 0; i-- {
		record := s.records[i]
		if record.TransactionID == transactionID && record.Processor == processor {
			return cloneRecord(record), nil
		}
	}
	return entities.TransactionRecord{}, domainerrors.ErrTransactionNotFound
}

func (s *Store) ListTransactionRecords(_ context.Context, transactionID string) ([]entities.TransactionRecord, error) {
	return s.filter(func(record entities.TransactionRecord) bool {
		return record.TransactionID == strings.TrimSpace(transactionID)
	}), nil
}

func (s *Store) GetTransactionsByCustomer(_ context.Context, customerID string, limit int, offset int) ([]entities.TransactionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	items := s.filter(func(record entities.TransactionRecord) bool {
		return record.CustomerID == strings.TrimSpace(customerID)
	})
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []entities.TransactionRecord{}, nil
	}
	end := len(items)
	if limit < end-offset {
		end = offset + limit
	}
	return append([]entities.TransactionRecord(nil), items[offset:end]...), nil
}

func (s *Store) GetResourceRecords(_ context.Context, resourceID string, processor entities.Processor) ([]entities.TransactionRecord, error) {
	return s.filter(func(record entities.TransactionRecord) bool {
		return record.ResourceID == strings.TrimSpace(resourceID) && record.Processor == processor
	}), nil
}

func (s *Store) ListRecordsAfter(_ context.Context, afterID int64, limit int) ([]entities.TransactionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	items := s.filter(func(record entities.TransactionRecord) bool {
		return record.ID > afterID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) GetCursor(_ context.Context, consumer string) (outbox.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, ok := s.cursors[strings.TrimSpace(consumer)]
	if !ok {
		return outbox.Cursor{Consumer: strings.TrimSpace(consumer)}, nil
	}
	return cursor, nil
}

func (s *Store) SaveCursor(_ context.Context, cursor outbox.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursor.Consumer = strings.TrimSpace(cursor.Consumer)
	s.cursors[cursor.Consumer] = cursor
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// filter returns matches in insertion order.
func (s *Store) filter(match func(entities.TransactionRecord) bool) []entities.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.TransactionRecord, 0)
	for _, record := range s.records {
		if match(record) {
			items = append(items, cloneRecord(record))
		}
	}
	return items
}

func cloneRecord(record entities.TransactionRecord) entities.TransactionRecord {
	if record.Amount != nil {
		amount := *record.Amount
		record.Amount = &amount
	}
	record.ProcessorMetadata = cloneMap(record.ProcessorMetadata)
	record.Metadata = cloneMap(record.Metadata)
	return record
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
