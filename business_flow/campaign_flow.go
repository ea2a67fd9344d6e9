// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/callpilot/callpilot/app/dto"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
	"github.com/callpilot/callpilot/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// statsCacheTTL bounds staleness of the campaign stats endpoint. Counters are
// always recomputed from the database after the TTL, never incrementally.
const statsCacheTTL = 5 * time.Second

// CampaignFlow handles the campaign business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error)
	UploadContacts(ctx context.Context, req *dto.UploadContactsRequest, metadata *ClientMetadata) (*dto.UploadContactsResponse, error)
	StartCampaign(ctx context.Context, req *dto.StartCampaignRequest, metadata *ClientMetadata) (*dto.StartCampaignResponse, error)
	PauseCampaign(ctx context.Context, req *dto.PauseCampaignRequest, metadata *ClientMetadata) (*dto.PauseCampaignResponse, error)
	ResumeCampaign(ctx context.Context, req *dto.ResumeCampaignRequest, metadata *ClientMetadata) (*dto.ResumeCampaignResponse, error)
	CancelCampaign(ctx context.Context, req *dto.CancelCampaignRequest, metadata *ClientMetadata) (*dto.CancelCampaignResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.GetCampaignResponse, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error)
	GetCampaignStats(ctx context.Context, req *dto.CampaignStatsRequest, metadata *ClientMetadata) (*dto.CampaignStatsResponse, error)
	ListLeadInsights(ctx context.Context, req *dto.ListLeadInsightsRequest, metadata *ClientMetadata) (*dto.ListLeadInsightsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	customerRepo repository.CustomerRepository
	agentRepo    repository.AgentRepository
	contactRepo  repository.ContactRepository
	queueRepo    repository.QueueEntryRepository
	callRepo     repository.CallRepository
	insightRepo  repository.LeadInsightRepository
	notifier     Notifier
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	agentRepo repository.AgentRepository,
	contactRepo repository.ContactRepository,
	queueRepo repository.QueueEntryRepository,
	callRepo repository.CallRepository,
	insightRepo repository.LeadInsightRepository,
	db *gorm.DB,
	rc *redis.Client,
	notifier Notifier,
	cacheConfig *config.CacheConfig,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		agentRepo:    agentRepo,
		contactRepo:  contactRepo,
		queueRepo:    queueRepo,
		callRepo:     callRepo,
		insightRepo:  insightRepo,
		notifier:     notifier,
		cacheConfig:  cacheConfig,
		rc:           rc,
		db:           db,
	}
}

// CreateCampaign creates a new campaign in draft status
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CreateCampaignResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	agent, err := s.agentRepo.ByUUID(ctx, req.AgentUUID)
	if err != nil {
		return nil, NewBusinessError("AGENT_LOOKUP_FAILED", "Failed to lookup agent", err)
	}
	if agent == nil {
		return nil, NewBusinessError("AGENT_NOT_FOUND", "Agent not found", ErrAgentNotFound)
	}
	if agent.CustomerID != customer.ID {
		return nil, NewBusinessError("AGENT_ACCESS_DENIED", "Agent belongs to another customer", ErrAgentAccessDenied)
	}
	if !agent.IsActive {
		return nil, NewBusinessError("AGENT_INACTIVE", "Agent is inactive", ErrAgentInactive)
	}

	startDate, err := time.ParseInLocation("2006-01-02", req.StartDate, time.UTC)
	if err != nil {
		return nil, NewBusinessError("INVALID_CALLING_WINDOW", "Invalid start date", ErrInvalidCallingWindow)
	}
	endDate, err := time.ParseInLocation("2006-01-02", req.EndDate, time.UTC)
	if err != nil {
		return nil, NewBusinessError("INVALID_CALLING_WINDOW", "Invalid end date", ErrInvalidCallingWindow)
	}

	campaign := &models.Campaign{
		UUID:               uuid.New(),
		CustomerID:         customer.ID,
		AgentID:            agent.ID,
		Title:              req.Title,
		Status:             models.CampaignStatusDraft,
		StartDate:          startDate,
		EndDate:            endDate,
		FirstCallTime:      req.FirstCallTime,
		LastCallTime:       req.LastCallTime,
		MaxConcurrentCalls: req.MaxConcurrentCalls,
		MaxRetries:         req.MaxRetries,
		CreatedAt:          utils.UTCNow(),
	}
	if err := campaign.ValidateWindow(); err != nil {
		return nil, NewBusinessError("INVALID_CALLING_WINDOW", "Invalid calling window", ErrInvalidCallingWindow)
	}

	if err := s.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	return &dto.CreateCampaignResponse{
		Message:   "Campaign created successfully",
		UUID:      campaign.UUID.String(),
		Status:    string(campaign.Status),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// UploadContacts attaches contacts to a draft campaign and enqueues one queue
// entry per contact. Contacts and entries are written in one transaction so
// the queue can never reference half-uploaded contacts.
func (s *CampaignFlowImpl) UploadContacts(ctx context.Context, req *dto.UploadContactsRequest, metadata *ClientMetadata) (*dto.UploadContactsResponse, error) {
	if len(req.Contacts) == 0 {
		return nil, NewBusinessError("CONTACTS_REQUIRED", "At least one contact is required", ErrContactsRequired)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, NewBusinessError("CAMPAIGN_NOT_DRAFT", "Contacts can only be uploaded to draft campaigns", ErrCampaignNotDraft)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		basePosition, err := s.contactRepo.MaxPositionByCampaign(txCtx, campaign.ID)
		if err != nil {
			return err
		}

		contacts := make([]*models.Contact, 0, len(req.Contacts))
		for i, c := range req.Contacts {
			contacts = append(contacts, &models.Contact{
				CampaignID:  campaign.ID,
				PhoneNumber: c.PhoneNumber,
				FullName:    c.FullName,
				Position:    basePosition + i + 1,
				CreatedAt:   utils.UTCNow(),
			})
		}
		if err := s.contactRepo.SaveBatch(txCtx, contacts); err != nil {
			return fmt.Errorf("failed to save contacts: %w", err)
		}

		entries := make([]*models.QueueEntry, 0, len(contacts))
		for _, c := range contacts {
			entries = append(entries, &models.QueueEntry{
				CampaignID: campaign.ID,
				ContactID:  c.ID,
				Status:     models.QueueEntryStatusPending,
				Position:   c.Position,
				CreatedAt:  utils.UTCNow(),
			})
		}
		if err := s.queueRepo.SaveBatch(txCtx, entries); err != nil {
			return fmt.Errorf("failed to enqueue contacts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CONTACT_UPLOAD_FAILED", "Contact upload failed", err)
	}

	queueSize, err := s.queueRepo.CountByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("QUEUE_COUNT_FAILED", "Failed to count queue entries", err)
	}

	return &dto.UploadContactsResponse{
		Message:       "Contacts uploaded successfully",
		ContactsAdded: len(req.Contacts),
		QueueSize:     queueSize,
	}, nil
}

// StartCampaign moves a draft campaign to scheduled and wakes the scheduler
func (s *CampaignFlowImpl) StartCampaign(ctx context.Context, req *dto.StartCampaignRequest, metadata *ClientMetadata) (*dto.StartCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.CanTransitionTo(models.CampaignStatusScheduled) {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign cannot be started in current status", ErrInvalidStatusTransition)
	}
	if campaign.WindowExhausted(utils.UTCNow()) {
		return nil, NewBusinessError("INVALID_CALLING_WINDOW", "Campaign calling window already passed", ErrInvalidCallingWindow)
	}

	queueSize, err := s.queueRepo.CountByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("QUEUE_COUNT_FAILED", "Failed to count queue entries", err)
	}
	if queueSize == 0 {
		return nil, NewBusinessError("QUEUE_EMPTY", "Campaign has no queued contacts", ErrQueueEmpty)
	}

	ok, err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, campaign.Status, models.CampaignStatusScheduled)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_START_FAILED", "Campaign start failed", err)
	}
	if !ok {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign status changed concurrently", ErrInvalidStatusTransition)
	}

	s.notifier.Notify()

	return &dto.StartCampaignResponse{
		Message: "Campaign scheduled successfully",
		Status:  string(models.CampaignStatusScheduled),
	}, nil
}

// PauseCampaign pauses a scheduled or active campaign. In-flight calls are
// not interrupted; only new dispatch stops.
func (s *CampaignFlowImpl) PauseCampaign(ctx context.Context, req *dto.PauseCampaignRequest, metadata *ClientMetadata) (*dto.PauseCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.CanTransitionTo(models.CampaignStatusPaused) {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign cannot be paused in current status", ErrInvalidStatusTransition)
	}

	ok, err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, campaign.Status, models.CampaignStatusPaused)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_PAUSE_FAILED", "Campaign pause failed", err)
	}
	if !ok {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign status changed concurrently", ErrInvalidStatusTransition)
	}

	s.notifier.Notify()

	return &dto.PauseCampaignResponse{
		Message: "Campaign paused successfully",
		Status:  string(models.CampaignStatusPaused),
	}, nil
}

// ResumeCampaign returns a paused campaign to scheduled; the scheduler decides
// when it becomes active again based on the calling window.
func (s *CampaignFlowImpl) ResumeCampaign(ctx context.Context, req *dto.ResumeCampaignRequest, metadata *ClientMetadata) (*dto.ResumeCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign.Status != models.CampaignStatusPaused {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Only paused campaigns can be resumed", ErrInvalidStatusTransition)
	}

	ok, err := s.campaignRepo.UpdateStatus(ctx, campaign.ID, models.CampaignStatusPaused, models.CampaignStatusScheduled)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_RESUME_FAILED", "Campaign resume failed", err)
	}
	if !ok {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign status changed concurrently", ErrInvalidStatusTransition)
	}

	s.notifier.Notify()

	return &dto.ResumeCampaignResponse{
		Message: "Campaign resumed successfully",
		Status:  string(models.CampaignStatusScheduled),
	}, nil
}

// CancelCampaign cancels a non-terminal campaign and bulk-cancels its pending
// queue entries. Processing entries settle through webhook or reconciliation.
func (s *CampaignFlowImpl) CancelCampaign(ctx context.Context, req *dto.CancelCampaignRequest, metadata *ClientMetadata) (*dto.CancelCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if !campaign.CanTransitionTo(models.CampaignStatusCancelled) {
		return nil, NewBusinessError("INVALID_STATUS_TRANSITION", "Campaign cannot be cancelled in current status", ErrInvalidStatusTransition)
	}

	var cancelled int64
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		ok, err := s.campaignRepo.UpdateStatus(txCtx, campaign.ID, campaign.Status, models.CampaignStatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidStatusTransition
		}
		cancelled, err = s.queueRepo.CancelPendingByCampaign(txCtx, campaign.ID)
		return err
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Campaign cancel failed", err)
	}

	s.notifier.Notify()

	return &dto.CancelCampaignResponse{
		Message:          "Campaign cancelled successfully",
		Status:           string(models.CampaignStatusCancelled),
		EntriesCancelled: cancelled,
	}, nil
}

// GetCampaign returns one campaign owned by the customer
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest, metadata *ClientMetadata) (*dto.GetCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	return &dto.GetCampaignResponse{
		Message:  "Campaign retrieved successfully",
		Campaign: ToCampaignDTO(campaign),
	}, nil
}

// ListCampaigns returns the customer's campaigns, newest first
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest, metadata *ClientMetadata) (*dto.ListCampaignsResponse, error) {
	if req.Page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	filter := models.CampaignFilter{CustomerID: &req.CustomerID}
	if req.Status != nil {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	offset := (req.Page - 1) * req.PageSize
	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, offset)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	out := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, ToCampaignDTO(*c))
	}

	return &dto.ListCampaignsResponse{
		Message:   "Campaigns retrieved successfully",
		Campaigns: out,
		Total:     total,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, nil
}

// GetCampaignStats returns queue and in-flight counters for one campaign. The
// counters are cached briefly in redis; the source of truth stays in Postgres.
func (s *CampaignFlowImpl) GetCampaignStats(ctx context.Context, req *dto.CampaignStatsRequest, metadata *ClientMetadata) (*dto.CampaignStatsResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	cacheKey := redisKey(*s.cacheConfig, fmt.Sprintf("campaign:stats:%s", campaign.UUID))
	if s.rc != nil && s.cacheConfig.Enabled {
		if bs, err := s.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var cached dto.CampaignStatsResponse
			if err := json.Unmarshal(bs, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.queueRepo.StatsByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "Failed to compute campaign stats", err)
	}
	inFlight, err := s.callRepo.CountInFlightByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_STATS_FAILED", "Failed to count in-flight calls", err)
	}

	queueStats := make(map[string]int64, len(stats))
	for status, count := range stats {
		queueStats[string(status)] = count
	}

	resp := &dto.CampaignStatsResponse{
		Message:       "Campaign stats retrieved successfully",
		UUID:          campaign.UUID.String(),
		Status:        string(campaign.Status),
		QueueStats:    queueStats,
		InFlightCalls: inFlight,
	}

	if s.rc != nil && s.cacheConfig.Enabled {
		if bs, err := json.Marshal(resp); err == nil {
			_ = s.rc.Set(ctx, cacheKey, bs, statsCacheTTL).Err()
		}
	}

	return resp, nil
}

// ListLeadInsights returns extracted lead insights for one campaign
func (s *CampaignFlowImpl) ListLeadInsights(ctx context.Context, req *dto.ListLeadInsightsRequest, metadata *ClientMetadata) (*dto.ListLeadInsightsResponse, error) {
	if req.Page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	offset := (req.Page - 1) * req.PageSize
	insights, err := s.insightRepo.ListByCampaign(ctx, campaign.ID, req.PageSize, offset)
	if err != nil {
		return nil, NewBusinessError("INSIGHT_LIST_FAILED", "Failed to list lead insights", err)
	}

	out := make([]dto.LeadInsightDTO, 0, len(insights))
	for _, insight := range insights {
		out = append(out, ToLeadInsightDTO(*insight))
	}

	return &dto.ListLeadInsightsResponse{
		Message:  "Lead insights retrieved successfully",
		Insights: out,
	}, nil
}
