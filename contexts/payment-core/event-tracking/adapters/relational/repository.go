package relationaladapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"
	domainerrors "seamless/contexts/payment-core/event-tracking/domain/errors"
	"seamless/internal/shared/outbox"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository stores transaction records in SQLite, PostgreSQL or MySQL through gorm.
type Repository struct {
	db     *gorm.DB
	close  func() error
	logger *slog.Logger
}

// NewRepository wraps db. closeFn releases the pool and may be nil when the
// caller owns the connection lifecycle.
func NewRepository(db *gorm.DB, closeFn func() error, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		close:  closeFn,
		logger: logger,
	}
}

func (r *Repository) Initialize(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&transactionRecordModel{}, &relayCursorModel{}); err != nil {
		return err
	}
	r.logger.Info("transaction record schema ready",
		"event", "transaction_store_schema_ready",
		"module", "payment-core/event-tracking",
		"layer", "adapter",
		"dialect", r.db.Dialector.Name(),
	)
	return nil
}

func (r *Repository) CreateTransaction(ctx context.Context, record entities.TransactionRecord) (entities.TransactionRecord, error) {
	if strings.TrimSpace(record.EventID) == "" {
		return entities.TransactionRecord{}, domainerrors.ErrInvalidEvent
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}

	row := recordModelFromEntity(record)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return entities.TransactionRecord{}, domainerrors.ErrDuplicateEvent
		}
		return entities.TransactionRecord{}, result.Error
	}
	if result.RowsAffected == 0 {
		return entities.TransactionRecord{}, domainerrors.ErrDuplicateEvent
	}
	return row.toEntity(), nil
}

func (r *Repository) GetTransaction(ctx context.Context, transactionID string, processor entities.Processor) (entities.TransactionRecord, error) {
	var row transactionRecordModel
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", strings.TrimSpace(transactionID)).
		Where("processor = ?", string(processor)).
		Order("id DESC").
		Take(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TransactionRecord{}, domainerrors.ErrTransactionNotFound
		}
		return entities.TransactionRecord{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListTransactionRecords(ctx context.Context, transactionID string) ([]entities.TransactionRecord, error) {
	var rows []transactionRecordModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", strings.TrimSpace(transactionID)).
		Order("id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) GetTransactionsByCustomer(ctx context.Context, customerID string, limit int, offset int) ([]entities.TransactionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []transactionRecordModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", strings.TrimSpace(customerID)).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) GetResourceRecords(ctx context.Context, resourceID string, processor entities.Processor) ([]entities.TransactionRecord, error) {
	var rows []transactionRecordModel
	if err := r.db.WithContext(ctx).
		Where("resource_id = ?", strings.TrimSpace(resourceID)).
		Where("processor = ?", string(processor)).
		Order("id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) ListRecordsAfter(ctx context.Context, afterID int64, limit int) ([]entities.TransactionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []transactionRecordModel
	if err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	return toEntities(rows), nil
}

func (r *Repository) GetCursor(ctx context.Context, consumer string) (outbox.Cursor, error) {
	consumer = strings.TrimSpace(consumer)
	var row relayCursorModel
	err := r.db.WithContext(ctx).
		Where("consumer = ?", consumer).
		Take(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return outbox.Cursor{Consumer: consumer}, nil
		}
		return outbox.Cursor{}, err
	}
	return outbox.Cursor{
		Consumer:     row.Consumer,
		LastRecordID: row.LastRecordID,
		UpdatedAt:    row.UpdatedAt.UTC(),
	}, nil
}

func (r *Repository) SaveCursor(ctx context.Context, cursor outbox.Cursor) error {
	row := relayCursorModel{
		Consumer:     strings.TrimSpace(cursor.Consumer),
		LastRecordID: cursor.LastRecordID,
		UpdatedAt:    cursor.UpdatedAt.UTC(),
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "consumer"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_record_id", "updated_at"}),
		}).
		Create(&row).
		Error
}

func (r *Repository) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

func toEntities(rows []transactionRecordModel) []entities.TransactionRecord {
	items := make([]entities.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

const mysqlDuplicateEntry = 1062

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
