package relationaladapter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/internal/shared/outbox"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payments.db")
	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	repo := NewRepository(db, sqlDB.Close, nil)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func sampleRecord(txID string, eventID string, createdAt time.Time) entities.TransactionRecord {
	return entities.TransactionRecord{
		TransactionID:     txID,
		EventID:           eventID,
		EventType:         entities.EventPaymentIntentCreated,
		Processor:         entities.ProcessorStripe,
		ResourceID:        "pi_1",
		Status:            entities.TransactionStatusPending,
		ProcessorStatus:   "requires_confirmation",
		Amount:            entities.Amount(49.99),
		Currency:          "usd",
		CustomerID:        "cus_1",
		ProcessorMetadata: map[string]any{"event_type": "payment_intent_created", "invoice": "in_1"},
		Metadata:          map[string]any{"order_ref": "A-1"},
		CreatedAt:         createdAt,
		RecordedAt:        createdAt,
	}
}

func TestRepositoryInitializeIsIdempotent(t *testing.T) {
	repo := newSQLiteRepository(t)
	require.NoError(t, repo.Initialize(context.Background()))
}

func TestRepositoryRoundTripsRecord(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	createdAt := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	stored, err := repo.CreateTransaction(ctx, sampleRecord("tx-1", "e1", createdAt))
	require.NoError(t, err)
	assert.NotZero(t, stored.ID)

	got, err := repo.GetTransaction(ctx, "tx-1", entities.ProcessorStripe)
	require.NoError(t, err)
	assert.Equal(t, "e1", got.EventID)
	assert.Equal(t, entities.TransactionStatusPending, got.Status)
	require.NotNil(t, got.Amount)
	assert.InDelta(t, 49.99, *got.Amount, 0.0001)
	assert.Equal(t, "in_1", got.ProcessorMetadata["invoice"])
	assert.Equal(t, "A-1", got.Metadata["order_ref"])
	assert.Equal(t, "", got.ParentEventID)
	assert.True(t, createdAt.Equal(got.CreatedAt))
}

func TestRepositoryDuplicateEventID(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.CreateTransaction(ctx, sampleRecord("tx-1", "e1", now))
	require.NoError(t, err)
	_, err = repo.CreateTransaction(ctx, sampleRecord("tx-1", "e1", now))
	require.ErrorIs(t, err, domainerrors.ErrDuplicateEvent)

	records, err := repo.ListTransactionRecords(ctx, "tx-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRepositoryQueriesOrdering(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	first := sampleRecord("tx-1", "e1", base)
	second := sampleRecord("tx-1", "e2", base.Add(time.Minute))
	second.ParentEventID = "e1"
	second.EventType = entities.EventPaymentCaptured
	second.Status = entities.TransactionStatusSucceeded
	third := sampleRecord("tx-2", "e3", base.Add(2*time.Minute))
	third.ResourceID = "pi_2"

	for _, record := range []entities.TransactionRecord{first, second, third} {
		_, err := repo.CreateTransaction(ctx, record)
		require.NoError(t, err)
	}

	latest, err := repo.GetTransaction(ctx, "tx-1", entities.ProcessorStripe)
	require.NoError(t, err)
	assert.Equal(t, "e2", latest.EventID)
	assert.Equal(t, "e1", latest.ParentEventID)

	chain, err := repo.ListTransactionRecords(ctx, "tx-1")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, []string{"e1", "e2"}, []string{chain[0].EventID, chain[1].EventID})

	byCustomer, err := repo.GetTransactionsByCustomer(ctx, "cus_1", 2, 0)
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	assert.Equal(t, "e3", byCustomer[0].EventID)
	assert.Equal(t, "e2", byCustomer[1].EventID)

	paged, err := repo.GetTransactionsByCustomer(ctx, "cus_1", 2, 2)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "e1", paged[0].EventID)

	resource, err := repo.GetResourceRecords(ctx, "pi_1", entities.ProcessorStripe)
	require.NoError(t, err)
	assert.Len(t, resource, 2)

	_, err = repo.GetTransaction(ctx, "missing", entities.ProcessorStripe)
	assert.ErrorIs(t, err, domainerrors.ErrTransactionNotFound)
}

func TestRepositoryRelayCursor(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	cursor, err := repo.GetCursor(ctx, "amqp")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cursor.LastRecordID)

	require.NoError(t, repo.SaveCursor(ctx, outbox.Cursor{Consumer: "amqp", LastRecordID: 7, UpdatedAt: time.Now()}))
	require.NoError(t, repo.SaveCursor(ctx, outbox.Cursor{Consumer: "amqp", LastRecordID: 9, UpdatedAt: time.Now()}))

	cursor, err = repo.GetCursor(ctx, "amqp")
	require.NoError(t, err)
	assert.Equal(t, int64(9), cursor.LastRecordID)

	for _, id := range []string{"e1", "e2"} {
		_, err := repo.CreateTransaction(ctx, sampleRecord("tx-1", id, time.Now().UTC()))
		require.NoError(t, err)
	}
	after, err := repo.ListRecordsAfter(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "e2", after[0].EventID)
}

func TestRepositoryConcurrentDuplicateEventStoredOnce(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()
	record := sampleRecord("tx-1", "e-dup", time.Now().UTC())

	const writers = 20
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		stored     int
		duplicates int
		failures   []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateTransaction(ctx, record)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stored++
			case errors.Is(err, domainerrors.ErrDuplicateEvent):
				duplicates++
			default:
				failures = append(failures, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 1, stored)
	assert.Equal(t, writers-1, duplicates)

	records, err := repo.ListTransactionRecords(ctx, "tx-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestIsUniqueViolationAcrossDialects(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})))
	assert.False(t, isUniqueViolation(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}
