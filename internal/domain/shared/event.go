package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
	// Changes returns the field diff produced by the state change that raised the event
	Changes() Changes
}

// FieldChange is the before/after value of a single field
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Changes maps a field name to its change
type Changes map[string]FieldChange

// Set records a change when the values differ; equal values are ignored
func (c Changes) Set(field string, oldValue, newValue any) Changes {
	if oldValue == newValue {
		return c
	}
	c[field] = FieldChange{Old: oldValue, New: newValue}
	return c
}

// Created records a field that had no previous value
func (c Changes) Created(field string, value any) Changes {
	c[field] = FieldChange{Old: nil, New: value}
	return c
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	Diff          Changes   `json:"changes,omitempty"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// TenantID returns the tenant ID
func (e *BaseDomainEvent) TenantID() uuid.UUID {
	return e.TenantIDValue
}

// Changes returns the field diff carried by the event
func (e *BaseDomainEvent) Changes() Changes {
	return e.Diff
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID, changes Changes) BaseDomainEvent {
	if changes == nil {
		changes = Changes{}
	}
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: tenantID,
		Diff:          changes,
	}
}
