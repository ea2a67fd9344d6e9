// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"crypto/subtle"
	"log"
	"time"

	"github.com/callpilot/callpilot/app/dto"
	businessflow "github.com/callpilot/callpilot/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// WebhookHandlerInterface defines the contract for provider webhook handlers
type WebhookHandlerInterface interface {
	HandleCallEvent(c fiber.Ctx) error
}

// WebhookHandler ingests call lifecycle events pushed by the telephony
// provider. Events the engine cannot use (unknown correlation, stale order,
// unknown status) are still acknowledged with 200 so the provider stops
// redelivering them; only malformed payloads get a 400.
type WebhookHandler struct {
	eventFlow     businessflow.CallEventFlow
	webhookSecret string
	validator     *validator.Validate
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(eventFlow businessflow.CallEventFlow, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		eventFlow:     eventFlow,
		webhookSecret: webhookSecret,
		validator:     validator.New(),
	}
}

func (h *WebhookHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *WebhookHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// HandleCallEvent processes one call lifecycle event from the provider
// @Summary Ingest Call Event
// @Description Apply a provider call lifecycle event (initiated, ringing, in-progress, terminal outcomes)
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param request body dto.CallEventRequest true "Call event payload"
// @Success 200 {object} dto.APIResponse "Event processed or acknowledged"
// @Failure 400 {object} dto.APIResponse "Malformed payload"
// @Failure 401 {object} dto.APIResponse "Invalid webhook secret"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/webhooks/call-events [post]
func (h *WebhookHandler) HandleCallEvent(c fiber.Ctx) error {
	if h.webhookSecret != "" {
		provided := c.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) != 1 {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid webhook secret", "INVALID_WEBHOOK_SECRET", nil)
		}
	}

	var req dto.CallEventRequest
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

	err := h.eventFlow.ProcessEvent(h.createRequestContext(c), &req)
	if err != nil {
		// Acknowledged but unusable: the provider must not retry these.
		if businessflow.IsUnknownCorrelationID(err) {
			return h.SuccessResponse(c, fiber.StatusOK, "Event acknowledged: no matching call", nil)
		}
		if businessflow.IsStaleCallEvent(err) {
			return h.SuccessResponse(c, fiber.StatusOK, "Event acknowledged: stale or duplicate", nil)
		}
		if businessflow.IsUnknownCallStatus(err) {
			return h.SuccessResponse(c, fiber.StatusOK, "Event acknowledged: unrecognized status", nil)
		}

		log.Println("Call event processing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Call event processing failed", "CALL_EVENT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Call event processed successfully", nil)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *WebhookHandler) createRequestContext(c fiber.Ctx) context.Context {
	return createRequestContextWithTimeout(c, "/api/v1/webhooks/call-events", 30*time.Second)
}
