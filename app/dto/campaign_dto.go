package dto

import (
	"time"
)

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	CustomerID         uint   `json:"-"`
	Title              string `json:"title" validate:"required,min=1,max=255"`
	AgentUUID          string `json:"agent_uuid" validate:"required,uuid"`
	StartDate          string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string `json:"end_date" validate:"required,datetime=2006-01-02"`
	FirstCallTime      int    `json:"first_call_time" validate:"min=0,max=1439"`
	LastCallTime       int    `json:"last_call_time" validate:"min=0,max=1439"`
	MaxConcurrentCalls *int   `json:"max_concurrent_calls,omitempty" validate:"omitempty,min=1"`
	MaxRetries         int    `json:"max_retries" validate:"min=0,max=10"`
}

// CreateCampaignResponse represents the response to create a new campaign
type CreateCampaignResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// UploadContactsRequest represents the request to attach contacts to a campaign
type UploadContactsRequest struct {
	UUID       string         `json:"-"`
	CustomerID uint           `json:"-"`
	Contacts   []ContactInput `json:"contacts" validate:"required,min=1,max=10000,dive"`
}

// ContactInput represents one contact row in an upload
type ContactInput struct {
	PhoneNumber string  `json:"phone_number" validate:"required,e164"`
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
}

// UploadContactsResponse represents the response to a contact upload
type UploadContactsResponse struct {
	Message       string `json:"message"`
	ContactsAdded int    `json:"contacts_added"`
	QueueSize     int64  `json:"queue_size"`
}

// StartCampaignRequest represents the request to schedule a draft campaign
type StartCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// StartCampaignResponse represents the response to schedule a draft campaign
type StartCampaignResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// PauseCampaignRequest represents the request to pause a campaign
type PauseCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// PauseCampaignResponse represents the response to pause a campaign
type PauseCampaignResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ResumeCampaignRequest represents the request to resume a paused campaign
type ResumeCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// ResumeCampaignResponse represents the response to resume a paused campaign
type ResumeCampaignResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// CancelCampaignRequest represents the request to cancel a campaign
type CancelCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// CancelCampaignResponse represents the response to cancel a campaign
type CancelCampaignResponse struct {
	Message          string `json:"message"`
	Status           string `json:"status"`
	EntriesCancelled int64  `json:"entries_cancelled"`
}

// GetCampaignRequest represents the request to get an existing campaign
type GetCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// CampaignDTO represents one campaign in responses
type CampaignDTO struct {
	UUID               string     `json:"uuid"`
	Title              string     `json:"title"`
	Status             string     `json:"status"`
	StartDate          string     `json:"start_date"`
	EndDate            string     `json:"end_date"`
	FirstCallTime      int        `json:"first_call_time"`
	LastCallTime       int        `json:"last_call_time"`
	MaxConcurrentCalls *int       `json:"max_concurrent_calls,omitempty"`
	MaxRetries         int        `json:"max_retries"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// GetCampaignResponse represents the response to get an existing campaign
type GetCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// ListCampaignsRequest represents the request to list campaigns
type ListCampaignsRequest struct {
	CustomerID uint    `json:"-"`
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=draft scheduled active paused completed cancelled"`
	Page       int     `json:"page" validate:"min=1"`
	PageSize   int     `json:"page_size" validate:"min=1,max=100"`
}

// ListCampaignsResponse represents the response to list campaigns
type ListCampaignsResponse struct {
	Message   string        `json:"message"`
	Campaigns []CampaignDTO `json:"campaigns"`
	Total     int64         `json:"total"`
	Page      int           `json:"page"`
	PageSize  int           `json:"page_size"`
}

// CampaignStatsRequest represents the request for campaign progress counters
type CampaignStatsRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// CampaignStatsResponse represents queue and call counters for one campaign
type CampaignStatsResponse struct {
	Message       string           `json:"message"`
	UUID          string           `json:"uuid"`
	Status        string           `json:"status"`
	QueueStats    map[string]int64 `json:"queue_stats"`
	InFlightCalls int64            `json:"in_flight_calls"`
}

// ListLeadInsightsRequest represents the request to list a campaign's lead insights
type ListLeadInsightsRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
	Page       int    `json:"page" validate:"min=1"`
	PageSize   int    `json:"page_size" validate:"min=1,max=100"`
}

// LeadInsightDTO represents one extracted lead insight in responses
type LeadInsightDTO struct {
	CallID    uint      `json:"call_id"`
	Sentiment string    `json:"sentiment"`
	Keywords  []string  `json:"keywords"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// ListLeadInsightsResponse represents the response to list lead insights
type ListLeadInsightsResponse struct {
	Message  string           `json:"message"`
	Insights []LeadInsightDTO `json:"insights"`
}
