package relationaladapter

import (
	"time"

	"seamless/contexts/payment-core/event-tracking/domain/entities"

	"gorm.io/datatypes"
)

type transactionRecordModel struct {
	ID                int64             `gorm:"column:id;primaryKey;autoIncrement"`
	TransactionID     string            `gorm:"column:transaction_id;type:varchar(64);not null;index:idx_transaction_records_transaction_id"`
	EventID           string            `gorm:"column:event_id;type:varchar(128);not null;uniqueIndex:ux_transaction_records_event_id"`
	EventType         string            `gorm:"column:event_type;type:varchar(64);not null"`
	Processor         string            `gorm:"column:processor;type:varchar(16);not null;index:idx_transaction_records_resource,priority:2"`
	ResourceID        string            `gorm:"column:resource_id;type:varchar(128);not null;index:idx_transaction_records_resource,priority:1"`
	Status            string            `gorm:"column:status;type:varchar(32);not null"`
	ProcessorStatus   string            `gorm:"column:processor_status;type:varchar(64)"`
	Amount            *float64          `gorm:"column:amount"`
	Currency          string            `gorm:"column:currency;type:varchar(8)"`
	CustomerID        *string           `gorm:"column:customer_id;type:varchar(128);index:idx_transaction_records_customer_id"`
	ProcessorMetadata datatypes.JSONMap `gorm:"column:processor_metadata"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata"`
	ParentEventID     *string           `gorm:"column:parent_event_id;type:varchar(128)"`
	CreatedAt         time.Time         `gorm:"column:created_at;not null"`
	RecordedAt        time.Time         `gorm:"column:recorded_at;not null"`
}

func (transactionRecordModel) TableName() string {
	return "transaction_records"
}

type relayCursorModel struct {
	Consumer     string    `gorm:"column:consumer;type:varchar(128);primaryKey"`
	LastRecordID int64     `gorm:"column:last_record_id;not null"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null"`
}

func (relayCursorModel) TableName() string {
	return "relay_cursors"
}

func recordModelFromEntity(record entities.TransactionRecord) transactionRecordModel {
	return transactionRecordModel{
		TransactionID:     record.TransactionID,
		EventID:           record.EventID,
		EventType:         string(record.EventType),
		Processor:         string(record.Processor),
		ResourceID:        record.ResourceID,
		Status:            string(record.Status),
		ProcessorStatus:   record.ProcessorStatus,
		Amount:            record.Amount,
		Currency:          record.Currency,
		CustomerID:        optionalString(record.CustomerID),
		ProcessorMetadata: datatypes.JSONMap(record.ProcessorMetadata),
		Metadata:          datatypes.JSONMap(record.Metadata),
		ParentEventID:     optionalString(record.ParentEventID),
		CreatedAt:         record.CreatedAt.UTC(),
		RecordedAt:        record.RecordedAt.UTC(),
	}
}

func (m transactionRecordModel) toEntity() entities.TransactionRecord {
	return entities.TransactionRecord{
		ID:                m.ID,
		TransactionID:     m.TransactionID,
		EventID:           m.EventID,
		EventType:         entities.EventType(m.EventType),
		Processor:         entities.Processor(m.Processor),
		ResourceID:        m.ResourceID,
		Status:            entities.TransactionStatus(m.Status),
		ProcessorStatus:   m.ProcessorStatus,
		Amount:            m.Amount,
		Currency:          m.Currency,
		CustomerID:        derefString(m.CustomerID),
		ProcessorMetadata: mapOrEmpty(m.ProcessorMetadata),
		Metadata:          mapOrEmpty(m.Metadata),
		ParentEventID:     derefString(m.ParentEventID),
		CreatedAt:         m.CreatedAt.UTC(),
		RecordedAt:        m.RecordedAt.UTC(),
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func mapOrEmpty(value datatypes.JSONMap) map[string]any {
	if value == nil {
		return map[string]any{}
	}
	return map[string]any(value)
}
