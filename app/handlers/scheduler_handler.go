// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/callpilot/callpilot/app/dto"
	"github.com/gofiber/fiber/v3"
)

// SchedulerStatusProvider reports the scheduler's current view
type SchedulerStatusProvider interface {
	Status(ctx context.Context) (*dto.SchedulerStatusResponse, error)
}

// SchedulerHandlerInterface defines the contract for scheduler handlers
type SchedulerHandlerInterface interface {
	GetStatus(c fiber.Ctx) error
}

// SchedulerHandler exposes the engine's operational state
type SchedulerHandler struct {
	scheduler SchedulerStatusProvider
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler SchedulerStatusProvider) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

func (h *SchedulerHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SchedulerHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetStatus returns the scheduler's operational state
// @Summary Get Scheduler Status
// @Description Retrieve the dispatch engine's current state: active campaigns, next wake, last pass
// @Tags Scheduler
// @Accept json
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SchedulerStatusResponse}
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/scheduler/status [get]
func (h *SchedulerHandler) GetStatus(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := h.scheduler.Status(ctx)
	if err != nil {
		log.Println("Scheduler status retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Scheduler status retrieval failed", "SCHEDULER_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Scheduler status retrieved successfully", fiber.Map{
		"message":            result.Message,
		"running":            result.Running,
		"active_campaigns":   result.ActiveCampaigns,
		"next_wake_at":       result.NextWakeAt,
		"last_pass_at":       result.LastPassAt,
		"last_pass_dispatch": result.LastPassDispatch,
		"in_flight_calls":    result.InFlightCalls,
	})
}
