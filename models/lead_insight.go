package models

import (
	"time"

	"github.com/lib/pq"
)

// LeadInsight captures the analytics extracted from a completed call. Written
// exactly once per call by post-processing; CallID is unique.
type LeadInsight struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CallID     uint           `gorm:"not null;uniqueIndex:uk_lead_insights_call_id" json:"call_id"`
	CampaignID uint           `gorm:"not null;index:idx_lead_insights_campaign_id" json:"campaign_id"`
	Sentiment  string         `gorm:"type:varchar(20);not null" json:"sentiment"`
	Interested *bool          `json:"interested,omitempty"`
	Summary    string         `gorm:"type:text" json:"summary"`
	Keywords   pq.StringArray `gorm:"type:text[]" json:"keywords"`
	CreatedAt  time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Call *Call `gorm:"foreignKey:CallID;references:ID" json:"call,omitempty"`
}

// TableName returns the table name for the model
func (LeadInsight) TableName() string {
	return "lead_insights"
}

// LeadInsightFilter represents filter criteria for lead insights
type LeadInsightFilter struct {
	ID         *uint   `json:"id,omitempty"`
	CallID     *uint   `json:"call_id,omitempty"`
	CampaignID *uint   `json:"campaign_id,omitempty"`
	Sentiment  *string `json:"sentiment,omitempty"`
}
