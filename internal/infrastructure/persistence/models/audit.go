package models

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditEntryModel is an append-only audit row. Changes are stored as JSON.
type AuditEntryModel struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index"`
	ActorID      uuid.UUID      `gorm:"type:uuid;not null;index"`
	ActorRole    string         `gorm:"type:varchar(20);not null"`
	Action       string         `gorm:"type:varchar(50);not null"`
	EntityType   string         `gorm:"type:varchar(30);not null;index:idx_audit_entity,priority:1"`
	EntityID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	EntityNumber string         `gorm:"type:varchar(30)"`
	Changes      shared.Changes `gorm:"type:jsonb;serializer:json;not null"`
	OccurredAt   time.Time      `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// AuditEntryModelFromDomain creates a persistence model from a domain AuditEntry
func AuditEntryModelFromDomain(e finance.AuditEntry) AuditEntryModel {
	return AuditEntryModel{
		ID:           e.ID,
		TenantID:     e.TenantID,
		ActorID:      e.ActorID,
		ActorRole:    string(e.ActorRole),
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		EntityNumber: e.EntityNumber,
		Changes:      e.Changes,
		OccurredAt:   e.OccurredAt,
	}
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *AuditEntryModel) ToDomain() finance.AuditEntry {
	return finance.AuditEntry{
		ID:           m.ID,
		TenantID:     m.TenantID,
		ActorID:      m.ActorID,
		ActorRole:    shared.Role(m.ActorRole),
		Action:       m.Action,
		EntityType:   m.EntityType,
		EntityID:     m.EntityID,
		EntityNumber: m.EntityNumber,
		Changes:      m.Changes,
		OccurredAt:   m.OccurredAt,
	}
}

// DocumentSequenceModel is the per-tenant, per-type, per-year numbering counter
type DocumentSequenceModel struct {
	TenantID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentType string    `gorm:"type:varchar(20);primaryKey"`
	Year         int       `gorm:"primaryKey;autoIncrement:false"`
	LastValue    int64     `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}
