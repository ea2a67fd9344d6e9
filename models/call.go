package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallLifecycleStatus represents the provider-driven lifecycle of a call.
// Transitions are forward-only along Rank; terminal branches are reachable
// from any non-terminal state.
type CallLifecycleStatus string

const (
	CallStatusInitiated    CallLifecycleStatus = "initiated"
	CallStatusRinging      CallLifecycleStatus = "ringing"
	CallStatusInProgress   CallLifecycleStatus = "in-progress"
	CallStatusDisconnected CallLifecycleStatus = "call-disconnected"
	CallStatusCompleted    CallLifecycleStatus = "completed"
	CallStatusBusy         CallLifecycleStatus = "busy"
	CallStatusNoAnswer     CallLifecycleStatus = "no-answer"
	CallStatusFailed       CallLifecycleStatus = "failed"
)

// String returns the string representation of the status
func (s CallLifecycleStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CallLifecycleStatus) Valid() bool {
	switch s {
	case CallStatusInitiated, CallStatusRinging, CallStatusInProgress,
		CallStatusDisconnected, CallStatusCompleted, CallStatusBusy,
		CallStatusNoAnswer, CallStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions
func (s CallLifecycleStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusBusy, CallStatusNoAnswer, CallStatusFailed:
		return true
	default:
		return false
	}
}

// InFlight reports whether the call occupies a concurrency slot
func (s CallLifecycleStatus) InFlight() bool {
	switch s {
	case CallStatusInitiated, CallStatusRinging, CallStatusInProgress:
		return true
	default:
		return false
	}
}

// Rank gives the position of the status in the forward-only ordering
func (s CallLifecycleStatus) Rank() int {
	switch s {
	case CallStatusInitiated:
		return 0
	case CallStatusRinging:
		return 1
	case CallStatusInProgress:
		return 2
	case CallStatusDisconnected:
		return 3
	case CallStatusCompleted, CallStatusBusy, CallStatusNoAnswer, CallStatusFailed:
		return 4
	default:
		return -1
	}
}

// CanTransitionTo checks if an event may move the call to the given status.
// Duplicate and out-of-order events fail this check and are ignored upstream.
func (s CallLifecycleStatus) CanTransitionTo(newStatus CallLifecycleStatus) bool {
	if s.Terminal() || !newStatus.Valid() {
		return false
	}
	return newStatus.Rank() > s.Rank()
}

// Scan implements the sql.Scanner interface for CallLifecycleStatus
func (s *CallLifecycleStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CallLifecycleStatus(v)
	case []byte:
		*s = CallLifecycleStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CallLifecycleStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CallLifecycleStatus
func (s CallLifecycleStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CallLifecycleStatus: %s", s)
	}
	return string(s), nil
}

// Call represents one dispatched call. It is created at dispatch time, never
// deleted, and mutated solely by webhook event processing and the
// reconciliation sweep. CorrelationID is assigned locally before placement
// and is immutable afterwards.
type Call struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:uk_calls_uuid" json:"uuid"`
	QueueEntryID  *uint               `gorm:"index:idx_calls_queue_entry_id" json:"queue_entry_id,omitempty"`
	CampaignID    uint                `gorm:"not null;index:idx_calls_campaign_id" json:"campaign_id"`
	CustomerID    uint                `gorm:"not null;index:idx_calls_customer_id" json:"customer_id"`
	AgentID       uint                `gorm:"not null" json:"agent_id"`
	CorrelationID string              `gorm:"type:varchar(64);not null;uniqueIndex:uk_calls_correlation_id" json:"correlation_id"`
	ProviderID    *string             `gorm:"type:varchar(128)" json:"provider_id,omitempty"`
	PhoneNumber   string              `gorm:"type:varchar(20);not null" json:"phone_number"`

	LifecycleStatus CallLifecycleStatus `gorm:"type:varchar(20);not null;default:'initiated';index:idx_calls_lifecycle_status" json:"lifecycle_status"`

	RecordingURL    *string    `gorm:"type:text" json:"recording_url,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	// PostProcessedAt guards billing and lead extraction: set at most once via
	// a conditional update, so duplicate terminal webhooks are no-ops.
	PostProcessedAt *time.Time `json:"post_processed_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_calls_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	QueueEntry *QueueEntry `gorm:"foreignKey:QueueEntryID;references:ID" json:"queue_entry,omitempty"`
	Campaign   *Campaign   `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Customer   *Customer   `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Call) TableName() string {
	return "calls"
}

// BeforeCreate is called before creating a new record
func (c *Call) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.LifecycleStatus == "" {
		c.LifecycleStatus = CallStatusInitiated
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// CallFilter represents filter criteria for calls
type CallFilter struct {
	ID              *uint                `json:"id,omitempty"`
	UUID            *uuid.UUID           `json:"uuid,omitempty"`
	CampaignID      *uint                `json:"campaign_id,omitempty"`
	CustomerID      *uint                `json:"customer_id,omitempty"`
	QueueEntryID    *uint                `json:"queue_entry_id,omitempty"`
	CorrelationID   *string              `json:"correlation_id,omitempty"`
	LifecycleStatus *CallLifecycleStatus `json:"lifecycle_status,omitempty"`
	CreatedAfter    *time.Time           `json:"created_after,omitempty"`
	CreatedBefore   *time.Time           `json:"created_before,omitempty"`
}

// CallTranscript stores the transcript attached at call-disconnected time
type CallTranscript struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CallID    uint      `gorm:"not null;uniqueIndex:uk_call_transcripts_call_id" json:"call_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Call *Call `gorm:"foreignKey:CallID;references:ID" json:"call,omitempty"`
}

// TableName returns the table name for the model
func (CallTranscript) TableName() string {
	return "call_transcripts"
}

// CallTranscriptFilter represents filter criteria for call transcripts
type CallTranscriptFilter struct {
	ID     *uint `json:"id,omitempty"`
	CallID *uint `json:"call_id,omitempty"`
}
