// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/amirphl/Yatagarasu/app/dto"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/gofiber/fiber/v3"
)

// StatsHandlerInterface defines the contract for stats handlers
type StatsHandlerInterface interface {
	GetHomeStats(c fiber.Ctx) error
}

// StatsHandler handles dashboard statistics requests
type StatsHandler struct {
	statsFlow businessflow.StatsFlow
}

func (h *StatsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *StatsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsFlow businessflow.StatsFlow) *StatsHandler {
	return &StatsHandler{statsFlow: statsFlow}
}

// GetHomeStats handles fetching the dashboard summary counters
// @Summary Home Stats
// @Description Retrieve dashboard counters. Managers see platform-wide totals, other customers see their own.
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.HomeStatsResponse} "Stats retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/stats/home [get]
func (h *StatsHandler) GetHomeStats(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.statsFlow.GetHomeStats(requestContext(c, "/api/v1/stats/home"), customerID)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}

		log.Println("Get home stats failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get stats", "GET_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Stats retrieved", result)
}
