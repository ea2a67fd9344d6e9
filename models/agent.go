package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent represents a calling-agent configuration referenced by campaigns. The
// provider resolves ProviderAgentID to the voice/script configuration used
// for placed calls.
type Agent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UUID            uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_agents_uuid" json:"uuid"`
	CustomerID      uint       `gorm:"not null;index:idx_agents_customer_id" json:"customer_id"`
	Name            string     `gorm:"type:varchar(255);not null" json:"name"`
	ProviderAgentID string     `gorm:"type:varchar(128);not null" json:"provider_agent_id"`
	IsActive        bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Agent) TableName() string {
	return "agents"
}

// BeforeCreate is called before creating a new record
func (a *Agent) BeforeCreate() error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

// AgentFilter represents filter criteria for agents
type AgentFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CustomerID *uint      `json:"customer_id,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
}
