// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/amirphl/Yatagarasu/app/dto"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ManagementHandlerInterface defines the contract for manager-only handlers
type ManagementHandlerInterface interface {
	ListCustomers(c fiber.Ctx) error
	SetCustomerBlocked(c fiber.Ctx) error
}

// ManagementHandler handles manager-only customer administration requests
type ManagementHandler struct {
	managementFlow businessflow.CustomerManagementFlow
	validator      *validator.Validate
}

func (h *ManagementHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ManagementHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewManagementHandler creates a new management handler
func NewManagementHandler(managementFlow businessflow.CustomerManagementFlow) *ManagementHandler {
	return &ManagementHandler{
		managementFlow: managementFlow,
		validator:      newValidator(),
	}
}

// ListCustomers handles listing customer accounts for managers
// @Summary List Customers
// @Description Retrieve customer accounts with pagination and filters. Managers only.
// @Tags Management
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(20)
// @Param email query string false "Filter by email"
// @Param is_blocked query bool false "Filter by blocked flag"
// @Success 200 {object} dto.APIResponse{data=dto.ListCustomersResponse} "Customers retrieved"
// @Failure 403 {object} dto.APIResponse "Manager privileges required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/management/customers [get]
func (h *ManagementHandler) ListCustomers(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListCustomersRequest{
		CustomerID: customerID,
		Page:       parseIntQuery(c, "page", 0),
		PageSize:   parseIntQuery(c, "page_size", 0),
	}
	if email := c.Query("email"); email != "" {
		req.Email = &email
	}
	switch c.Query("is_blocked") {
	case "true":
		v := true
		req.IsBlocked = &v
	case "false":
		v := false
		req.IsBlocked = &v
	}

	result, err := h.managementFlow.ListCustomers(requestContext(c, "/api/v1/management/customers"), &req)
	if err != nil {
		if businessflow.IsManagerRequired(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Manager privileges required", "MANAGER_REQUIRED", nil)
		}
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}

		log.Println("List customers failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list customers", "LIST_CUSTOMERS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Customers retrieved", result)
}

// SetCustomerBlocked handles blocking or unblocking a customer account
// @Summary Block or Unblock Customer
// @Description Block or unblock a customer account. Managers only. Blocking expires all of the customer's sessions.
// @Tags Management
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Target customer ID"
// @Param request body dto.SetCustomerBlockedRequest true "Block flag"
// @Success 200 {object} dto.APIResponse{data=dto.AuthCustomerDTO} "Customer updated"
// @Failure 400 {object} dto.APIResponse "Self-block denied"
// @Failure 403 {object} dto.APIResponse "Manager privileges required"
// @Failure 404 {object} dto.APIResponse "Customer not found"
// @Router /api/v1/management/customers/{id}/block [post]
func (h *ManagementHandler) SetCustomerBlocked(c fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid customer ID", "INVALID_TARGET_CUSTOMER_ID", nil)
	}

	var req dto.SetCustomerBlockedRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID
	req.TargetCustomerID = targetID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.managementFlow.SetCustomerBlocked(requestContext(c, "/api/v1/management/customers/"+c.Params("id")+"/block"), &req, metadata)
	if err != nil {
		if businessflow.IsManagerRequired(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Manager privileges required", "MANAGER_REQUIRED", nil)
		}
		if businessflow.IsSelfBlockDenied(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Blocking your own account is not allowed", "SELF_BLOCK_DENIED", nil)
		}
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}

		log.Println("Set customer blocked failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update customer", "SET_BLOCKED_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Customer updated successfully", result)
}
