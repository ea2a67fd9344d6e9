package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/callpilot/callpilot/utils"
	"github.com/google/uuid"
)

// CampaignStatus represents the status of a calling campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusScheduled, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions
func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusCancelled
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign represents a time-boxed outbound-calling job targeting a contact
// list via one calling agent.
type Campaign struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	CustomerID uint           `gorm:"not null;index:idx_campaigns_customer_id" json:"customer_id"`
	AgentID    uint           `gorm:"not null" json:"agent_id"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	Status     CampaignStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaigns_status" json:"status"`

	// Calling window: dates bound the campaign, times-of-day bound each day.
	// FirstCallTime/LastCallTime are minutes since UTC midnight (0..1439).
	StartDate     time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate       time.Time `gorm:"type:date;not null" json:"end_date"`
	FirstCallTime int       `gorm:"not null" json:"first_call_time"`
	LastCallTime  int       `gorm:"not null" json:"last_call_time"`

	// MaxConcurrentCalls overrides the owner's concurrency limit when set and lower.
	MaxConcurrentCalls *int `json:"max_concurrent_calls,omitempty"`
	// MaxRetries bounds automatic re-dials after busy/no-answer/failed outcomes.
	MaxRetries int `gorm:"not null;default:0" json:"max_retries"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Agent    *Agent    `gorm:"foreignKey:AgentID;references:ID" json:"agent,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate() error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate() error {
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return nil
}

// ValidateWindow checks the calling-window invariants
func (c *Campaign) ValidateWindow() error {
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("campaign %d: end_date before start_date", c.ID)
	}
	if c.FirstCallTime < 0 || c.FirstCallTime > 1439 ||
		c.LastCallTime < 0 || c.LastCallTime > 1439 {
		return fmt.Errorf("campaign %d: call time out of range", c.ID)
	}
	if c.LastCallTime < c.FirstCallTime {
		return fmt.Errorf("campaign %d: last_call_time before first_call_time", c.ID)
	}
	return nil
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusActive:
		return newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusPaused:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusCancelled
	default:
		return false
	}
}

// WindowOpenAt reports whether calls may be placed at the given instant
func (c *Campaign) WindowOpenAt(now time.Time) bool {
	now = now.UTC()
	day := utils.StartOfDay(now)
	if day.Before(utils.StartOfDay(c.StartDate)) || day.After(utils.StartOfDay(c.EndDate)) {
		return false
	}
	minutes := utils.MinutesIntoDay(now)
	return minutes >= c.FirstCallTime && minutes <= c.LastCallTime
}

// NextWindowOpen computes the next instant the calling window opens: now when
// already inside the window, the next daily opening otherwise, nil once the
// window is exhausted.
func (c *Campaign) NextWindowOpen(now time.Time) *time.Time {
	now = now.UTC()
	if c.WindowOpenAt(now) {
		return &now
	}

	day := utils.StartOfDay(c.StartDate)
	if today := utils.StartOfDay(now); today.After(day) {
		day = today
	}
	end := utils.StartOfDay(c.EndDate)

	for !day.After(end) {
		open := day.Add(time.Duration(c.FirstCallTime) * time.Minute)
		if open.After(now) {
			return &open
		}
		day = day.AddDate(0, 0, 1)
	}
	return nil
}

// WindowExhausted reports whether no future opening remains
func (c *Campaign) WindowExhausted(now time.Time) bool {
	return c.NextWindowOpen(now) == nil
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	CustomerID    *uint           `json:"customer_id,omitempty"`
	AgentID       *uint           `json:"agent_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
