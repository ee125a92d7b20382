// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strconv"

	"github.com/amirphl/Yatagarasu/app/dto"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RecipientHandlerInterface defines the contract for recipient handlers
type RecipientHandlerInterface interface {
	CreateRecipient(c fiber.Ctx) error
	GetRecipient(c fiber.Ctx) error
	ListRecipients(c fiber.Ctx) error
	UpdateRecipient(c fiber.Ctx) error
	DeleteRecipient(c fiber.Ctx) error
}

// RecipientHandler handles recipient-related HTTP requests
type RecipientHandler struct {
	recipientFlow businessflow.RecipientFlow
	validator     *validator.Validate
}

func (h *RecipientHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RecipientHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewRecipientHandler creates a new recipient handler
func NewRecipientHandler(recipientFlow businessflow.RecipientFlow) *RecipientHandler {
	return &RecipientHandler{
		recipientFlow: recipientFlow,
		validator:     newValidator(),
	}
}

// CreateRecipient handles adding a new recipient
// @Summary Create Recipient
// @Description Add a new recipient to the address book
// @Tags Recipients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateRecipientRequest true "Recipient data"
// @Success 201 {object} dto.APIResponse{data=dto.RecipientDTO} "Recipient created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Recipient email already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/recipients [post]
func (h *RecipientHandler) CreateRecipient(c fiber.Ctx) error {
	var req dto.CreateRecipientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get authenticated customer ID from context
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.recipientFlow.CreateRecipient(requestContext(c, "/api/v1/recipients"), &req, metadata)
	if err != nil {
		if businessflow.IsRecipientEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Recipient email already exists", "RECIPIENT_EMAIL_EXISTS", nil)
		}
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}

		log.Println("Recipient creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient creation failed", "RECIPIENT_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Recipient created successfully", result)
}

// GetRecipient handles fetching a single recipient
// @Summary Get Recipient
// @Description Retrieve a recipient by ID
// @Tags Recipients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipient ID"
// @Success 200 {object} dto.APIResponse{data=dto.RecipientDTO} "Recipient retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Recipient not found"
// @Router /api/v1/recipients/{id} [get]
func (h *RecipientHandler) GetRecipient(c fiber.Ctx) error {
	recipientID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_RECIPIENT_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.recipientFlow.GetRecipient(requestContext(c, "/api/v1/recipients/"+c.Params("id")), customerID, recipientID)
	if err != nil {
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Get recipient failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get recipient", "GET_RECIPIENT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient retrieved", result)
}

// ListRecipients handles listing recipients with pagination and search
// @Summary List Recipients
// @Description Retrieve recipients with pagination and optional search
// @Tags Recipients
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(20)
// @Param search query string false "Filter by email or full name (contains)"
// @Success 200 {object} dto.APIResponse{data=dto.ListRecipientsResponse} "Recipients retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/recipients [get]
func (h *RecipientHandler) ListRecipients(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListRecipientsRequest{
		CustomerID: customerID,
		Page:       parseIntQuery(c, "page", 0),
		PageSize:   parseIntQuery(c, "page_size", 0),
	}
	if search := c.Query("search"); search != "" {
		req.Search = &search
	}

	result, err := h.recipientFlow.ListRecipients(requestContext(c, "/api/v1/recipients"), &req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}

		log.Println("List recipients failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list recipients", "LIST_RECIPIENTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients retrieved", result)
}

// UpdateRecipient handles editing a recipient
// @Summary Update Recipient
// @Description Update an existing recipient
// @Tags Recipients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipient ID"
// @Param request body dto.UpdateRecipientRequest true "Recipient data"
// @Success 200 {object} dto.APIResponse{data=dto.RecipientDTO} "Recipient updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Recipient not found"
// @Failure 409 {object} dto.APIResponse "Recipient email already exists"
// @Router /api/v1/recipients/{id} [put]
func (h *RecipientHandler) UpdateRecipient(c fiber.Ctx) error {
	recipientID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_RECIPIENT_ID", nil)
	}

	var req dto.UpdateRecipientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
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
	req.RecipientID = recipientID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.recipientFlow.UpdateRecipient(requestContext(c, "/api/v1/recipients/"+c.Params("id")), &req, metadata)
	if err != nil {
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsRecipientEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Recipient email already exists", "RECIPIENT_EMAIL_EXISTS", nil)
		}

		log.Println("Recipient update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient update failed", "RECIPIENT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient updated successfully", result)
}

// DeleteRecipient handles removing a recipient
// @Summary Delete Recipient
// @Description Remove a recipient from the address book
// @Tags Recipients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Recipient ID"
// @Success 200 {object} dto.APIResponse "Recipient deleted"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Recipient not found"
// @Router /api/v1/recipients/{id} [delete]
func (h *RecipientHandler) DeleteRecipient(c fiber.Ctx) error {
	recipientID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient ID", "INVALID_RECIPIENT_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.recipientFlow.DeleteRecipient(requestContext(c, "/api/v1/recipients/"+c.Params("id")), customerID, recipientID, metadata); err != nil {
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Recipient deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient deletion failed", "RECIPIENT_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient deleted successfully", nil)
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || v == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(v), nil
}

// parseIntQuery parses a numeric query parameter, falling back to def
func parseIntQuery(c fiber.Ctx, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return def
}
