// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/callpilot/callpilot/app/dto"
	businessflow "github.com/callpilot/callpilot/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UploadContacts(c fiber.Ctx) error
	StartCampaign(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	ResumeCampaign(c fiber.Ctx) error
	CancelCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetCampaignStats(c fiber.Ctx) error
	ListLeadInsights(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new call campaign in draft status
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateCampaignResponse} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized - customer not found or inactive"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CreateCampaign(h.createRequestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		if businessflow.IsAgentNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Agent not found", "AGENT_NOT_FOUND", nil)
		}
		if businessflow.IsAgentAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: agent belongs to another customer", "AGENT_ACCESS_DENIED", nil)
		}
		if businessflow.IsAgentInactive(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Agent is inactive", "AGENT_INACTIVE", nil)
		}
		if businessflow.IsInvalidCallingWindow(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid calling window", "INVALID_CALLING_WINDOW", nil)
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", fiber.Map{
		"message":    result.Message,
		"uuid":       result.UUID,
		"status":     result.Status,
		"created_at": result.CreatedAt,
	})
}

// UploadContacts handles attaching contacts to a draft campaign
// @Summary Upload Campaign Contacts
// @Description Attach a batch of contacts to a draft campaign and enqueue them for dialing
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param request body dto.UploadContactsRequest true "Contacts to upload"
// @Success 200 {object} dto.APIResponse{data=dto.UploadContactsResponse} "Contacts uploaded successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or campaign not in draft"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/contacts [post]
func (h *CampaignHandler) UploadContacts(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.UploadContactsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = campaignUUID

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.UploadContacts(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/contacts"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another customer", "CAMPAIGN_ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNotDraft(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Contacts can only be uploaded to draft campaigns", "CAMPAIGN_NOT_DRAFT", nil)
		}
		if businessflow.IsContactsRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one contact is required", "CONTACTS_REQUIRED", nil)
		}

		log.Println("Contact upload failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact upload failed", "CONTACT_UPLOAD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts uploaded successfully", fiber.Map{
		"message":        result.Message,
		"contacts_added": result.ContactsAdded,
		"queue_size":     result.QueueSize,
	})
}

// StartCampaign handles moving a draft campaign into the scheduler's hands
// @Summary Start Campaign
// @Description Schedule a draft campaign for dialing within its calling window
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.StartCampaignResponse} "Campaign scheduled successfully"
// @Failure 400 {object} dto.APIResponse "Invalid transition, empty queue, or exhausted window"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/start [post]
func (h *CampaignHandler) StartCampaign(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.StartCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/start"), &dto.StartCampaignRequest{UUID: req.UUID, CustomerID: req.CustomerID}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		if businessflow.IsQueueEmpty(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has no queued contacts", "QUEUE_EMPTY", nil)
		}
		if businessflow.IsInvalidCallingWindow(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign calling window already passed", "INVALID_CALLING_WINDOW", nil)
		}

		log.Println("Campaign start failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign start failed", "CAMPAIGN_START_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign scheduled successfully", fiber.Map{
		"message": result.Message,
		"status":  result.Status,
	})
}

// PauseCampaign handles pausing a scheduled or active campaign
// @Summary Pause Campaign
// @Description Pause new dispatch for a campaign; in-flight calls are not interrupted
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.PauseCampaignResponse} "Campaign paused successfully"
// @Failure 400 {object} dto.APIResponse "Invalid transition"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/pause [post]
func (h *CampaignHandler) PauseCampaign(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.PauseCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/pause"), &dto.PauseCampaignRequest{UUID: req.UUID, CustomerID: req.CustomerID}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		log.Println("Campaign pause failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign pause failed", "CAMPAIGN_PAUSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign paused successfully", fiber.Map{
		"message": result.Message,
		"status":  result.Status,
	})
}

// ResumeCampaign handles resuming a paused campaign
// @Summary Resume Campaign
// @Description Return a paused campaign to the scheduler
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ResumeCampaignResponse} "Campaign resumed successfully"
// @Failure 400 {object} dto.APIResponse "Invalid transition"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ResumeCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/resume"), &dto.ResumeCampaignRequest{UUID: req.UUID, CustomerID: req.CustomerID}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		log.Println("Campaign resume failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign resume failed", "CAMPAIGN_RESUME_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign resumed successfully", fiber.Map{
		"message": result.Message,
		"status":  result.Status,
	})
}

// CancelCampaign handles cancelling a non-terminal campaign
// @Summary Cancel Campaign
// @Description Cancel a campaign and its pending queue entries; in-flight calls settle through webhooks
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CancelCampaignResponse} "Campaign cancelled successfully"
// @Failure 400 {object} dto.APIResponse "Invalid transition"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CancelCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/cancel"), &dto.CancelCampaignRequest{UUID: req.UUID, CustomerID: req.CustomerID}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		log.Println("Campaign cancel failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign cancel failed", "CAMPAIGN_CANCEL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign cancelled successfully", fiber.Map{
		"message":           result.Message,
		"status":            result.Status,
		"entries_cancelled": result.EntriesCancelled,
	})
}

// GetCampaign returns one campaign owned by the authenticated customer
// @Summary Get Campaign
// @Description Retrieve a single campaign by UUID
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.GetCampaignResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.GetCampaign(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID), &dto.GetCampaignRequest{UUID: req.UUID, CustomerID: req.CustomerID}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		log.Println("Campaign retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign retrieval failed", "CAMPAIGN_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", fiber.Map{
		"message":  result.Message,
		"campaign": result.Campaign,
	})
}

// ListCampaigns returns the customer's campaigns with pagination and filters
// @Summary List Campaigns
// @Description Retrieve the authenticated customer's campaigns, newest first
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(10)
// @Param status query string false "Filter by status (draft|scheduled|active|paused|completed|cancelled)"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := 10
	if v, err := strconv.Atoi(c.Query("page_size", "10")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > 100 {
		pageSize = 100
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := &dto.ListCampaignsRequest{
		CustomerID: customerID,
		Page:       page,
		PageSize:   pageSize,
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListCampaigns(h.createRequestContext(c, "/api/v1/campaigns"), req, metadata)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil)
		}
		log.Println("List campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", fiber.Map{
		"message":   result.Message,
		"campaigns": result.Campaigns,
		"total":     result.Total,
		"page":      result.Page,
		"page_size": result.PageSize,
	})
}

// GetCampaignStats returns queue and in-flight counters for one campaign
// @Summary Get Campaign Stats
// @Description Retrieve live queue counters and in-flight call count for a campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignStatsResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/stats [get]
func (h *CampaignHandler) GetCampaignStats(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.GetCampaignStats(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/stats"), &dto.CampaignStatsRequest{UUID: req.UUID, CustomerID: req.CustomerID}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		log.Println("Campaign stats retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign stats retrieval failed", "CAMPAIGN_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign stats retrieved successfully", fiber.Map{
		"message":         result.Message,
		"uuid":            result.UUID,
		"status":          result.Status,
		"queue_stats":     result.QueueStats,
		"in_flight_calls": result.InFlightCalls,
	})
}

// ListLeadInsights returns extracted lead insights for one campaign
// @Summary List Lead Insights
// @Description Retrieve lead insights extracted from completed calls of a campaign
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param uuid path string true "Campaign UUID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadInsightsResponse}
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Forbidden - campaign access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{uuid}/insights [get]
func (h *CampaignHandler) ListLeadInsights(c fiber.Ctx) error {
	req, ok, errResp := h.lifecycleRequest(c)
	if !ok {
		return errResp
	}

	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := 10
	if v, err := strconv.Atoi(c.Query("page_size", "10")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > 100 {
		pageSize = 100
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ListLeadInsights(h.createRequestContext(c, "/api/v1/campaigns/"+req.UUID+"/insights"), &dto.ListLeadInsightsRequest{
		UUID:       req.UUID,
		CustomerID: req.CustomerID,
		Page:       page,
		PageSize:   pageSize,
	}, metadata)
	if err != nil {
		if handled, resp := h.lifecycleError(c, err); handled {
			return resp
		}
		log.Println("Lead insight listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list lead insights", "INSIGHT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead insights retrieved successfully", fiber.Map{
		"message":  result.Message,
		"insights": result.Insights,
	})
}

// lifecycleRequest extracts the campaign UUID and authenticated customer ID
// shared by all per-campaign endpoints. The boolean reports whether the
// request is usable; when false the error response has already been written.
func (h *CampaignHandler) lifecycleRequest(c fiber.Ctx) (*dto.GetCampaignRequest, bool, error) {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return nil, false, h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return nil, false, h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	return &dto.GetCampaignRequest{UUID: campaignUUID, CustomerID: customerID}, true, nil
}

// lifecycleError maps the business errors every per-campaign endpoint shares.
// Returns handled=false when the error needs endpoint-specific handling.
func (h *CampaignHandler) lifecycleError(c fiber.Ctx, err error) (bool, error) {
	if businessflow.IsCustomerNotFound(err) {
		return true, h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
	}
	if businessflow.IsAccountInactive(err) {
		return true, h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil)
	}
	if businessflow.IsCampaignNotFound(err) {
		return true, h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsCampaignAccessDenied(err) {
		return true, h.ErrorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another customer", "CAMPAIGN_ACCESS_DENIED", nil)
	}
	if businessflow.IsInvalidStatusTransition(err) {
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign cannot change to the requested status", "INVALID_STATUS_TRANSITION", nil)
	}
	return false, nil
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CampaignHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
