// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"

	"github.com/callpilot/callpilot/app/dto"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
)

const RequestIDKey = "X-Request-ID"

// Notifier wakes the campaign scheduler after a state change that may make
// work dispatchable sooner than the next planned wake. Implementations must
// never block: a wake that is already pending is enough.
type Notifier interface {
	Notify()
}

// NopNotifier discards wake requests. Used when the scheduler is disabled.
type NopNotifier struct{}

func (NopNotifier) Notify() {}

// ClientMetadata holds client-related information for request tracking
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

func getCustomer(ctx context.Context, repo repository.CustomerRepository, customerID uint) (models.Customer, error) {
	customer, err := repo.ByID(ctx, customerID)
	if err != nil {
		return models.Customer{}, err
	}
	if customer == nil {
		return models.Customer{}, ErrCustomerNotFound
	}
	if !customer.IsActive {
		return models.Customer{}, ErrAccountInactive
	}
	return *customer, nil
}

// getCampaign fetches a campaign by UUID and enforces ownership
func getCampaign(ctx context.Context, repo repository.CampaignRepository, campaignUUID string, customerID uint) (models.Campaign, error) {
	campaign, err := repo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return models.Campaign{}, err
	}
	if campaign == nil {
		return models.Campaign{}, ErrCampaignNotFound
	}
	if campaign.CustomerID != customerID {
		return models.Campaign{}, ErrCampaignAccessDenied
	}
	return *campaign, nil
}

// ToCampaignDTO converts a campaign model for API responses
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	return dto.CampaignDTO{
		UUID:               campaign.UUID.String(),
		Title:              campaign.Title,
		Status:             string(campaign.Status),
		StartDate:          campaign.StartDate.Format("2006-01-02"),
		EndDate:            campaign.EndDate.Format("2006-01-02"),
		FirstCallTime:      campaign.FirstCallTime,
		LastCallTime:       campaign.LastCallTime,
		MaxConcurrentCalls: campaign.MaxConcurrentCalls,
		MaxRetries:         campaign.MaxRetries,
		CreatedAt:          campaign.CreatedAt,
		UpdatedAt:          campaign.UpdatedAt,
	}
}

// ToLeadInsightDTO converts a lead insight model for API responses
func ToLeadInsightDTO(insight models.LeadInsight) dto.LeadInsightDTO {
	return dto.LeadInsightDTO{
		CallID:    insight.CallID,
		Sentiment: insight.Sentiment,
		Keywords:  insight.Keywords,
		Summary:   insight.Summary,
		CreatedAt: insight.CreatedAt,
	}
}
