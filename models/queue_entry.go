package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// QueueEntryStatus represents the status of a queued call attempt
type QueueEntryStatus string

const (
	QueueEntryStatusPending    QueueEntryStatus = "pending"
	QueueEntryStatusProcessing QueueEntryStatus = "processing"
	QueueEntryStatusCompleted  QueueEntryStatus = "completed"
	QueueEntryStatusFailed     QueueEntryStatus = "failed"
	QueueEntryStatusCancelled  QueueEntryStatus = "cancelled"
)

// String returns the string representation of the status
func (s QueueEntryStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s QueueEntryStatus) Valid() bool {
	switch s {
	case QueueEntryStatusPending, QueueEntryStatusProcessing,
		QueueEntryStatusCompleted, QueueEntryStatusFailed, QueueEntryStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the entry has reached a final state
func (s QueueEntryStatus) Terminal() bool {
	switch s {
	case QueueEntryStatusCompleted, QueueEntryStatusFailed, QueueEntryStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for QueueEntryStatus
func (s *QueueEntryStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = QueueEntryStatus(v)
	case []byte:
		*s = QueueEntryStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into QueueEntryStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for QueueEntryStatus
func (s QueueEntryStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid QueueEntryStatus: %s", s)
	}
	return string(s), nil
}

// QueueEntry represents one contact's pending-to-terminal call attempt within
// a campaign. Claims are guarded by a conditional update so at most one entry
// per contact is processing at a time.
type QueueEntry struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	CampaignID   uint             `gorm:"not null;index:idx_queue_entries_campaign_id" json:"campaign_id"`
	ContactID    uint             `gorm:"not null;index:idx_queue_entries_contact_id" json:"contact_id"`
	Status       QueueEntryStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_queue_entries_status" json:"status"`
	AttemptCount int              `gorm:"not null;default:0" json:"attempt_count"`
	Position     int              `gorm:"not null" json:"position"`
	CreatedAt    time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time       `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Contact  *Contact  `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
}

// TableName returns the table name for the model
func (QueueEntry) TableName() string {
	return "queue_entries"
}

// QueueEntryFilter represents filter criteria for queue entries
type QueueEntryFilter struct {
	ID            *uint             `json:"id,omitempty"`
	CampaignID    *uint             `json:"campaign_id,omitempty"`
	ContactID     *uint             `json:"contact_id,omitempty"`
	Status        *QueueEntryStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time        `json:"created_after,omitempty"`
	CreatedBefore *time.Time        `json:"created_before,omitempty"`
}
