package finance

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditEntry is the durable record of one state change
type AuditEntry struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	ActorID      uuid.UUID      `json:"actor_id"`
	ActorRole    shared.Role    `json:"actor_role"`
	Action       string         `json:"action"`
	EntityType   string         `json:"entity_type"`
	EntityID     uuid.UUID      `json:"entity_id"`
	EntityNumber string         `json:"entity_number,omitempty"`
	Changes      shared.Changes `json:"changes"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// NewAuditEntry converts a domain event raised under the actor into an audit entry
func NewAuditEntry(actor shared.Actor, ev shared.DomainEvent) AuditEntry {
	entry := AuditEntry{
		ID:         uuid.New(),
		TenantID:   ev.TenantID(),
		ActorID:    actor.UserID,
		ActorRole:  actor.Role,
		Action:     ev.EventType(),
		EntityType: ev.AggregateType(),
		EntityID:   ev.AggregateID(),
		Changes:    ev.Changes(),
		OccurredAt: ev.OccurredAt(),
	}
	if de, ok := ev.(*DocumentEvent); ok {
		entry.EntityNumber = de.Number
	}
	if entry.Changes == nil {
		entry.Changes = shared.Changes{}
	}
	return entry
}
