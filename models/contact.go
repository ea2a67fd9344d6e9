package models

import (
	"time"
)

// Contact represents one phone number targeted by a campaign. Position fixes
// the dispatch order within the campaign.
type Contact struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CampaignID  uint      `gorm:"not null;index:idx_contacts_campaign_id" json:"campaign_id"`
	PhoneNumber string    `gorm:"type:varchar(20);not null" json:"phone_number"`
	FullName    *string   `gorm:"type:varchar(255)" json:"full_name,omitempty"`
	Position    int       `gorm:"not null" json:"position"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (Contact) TableName() string {
	return "contacts"
}

// ContactFilter represents filter criteria for contacts
type ContactFilter struct {
	ID          *uint   `json:"id,omitempty"`
	CampaignID  *uint   `json:"campaign_id,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}
