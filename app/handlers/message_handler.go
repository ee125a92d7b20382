// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/amirphl/Yatagarasu/app/dto"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// MessageHandlerInterface defines the contract for message handlers
type MessageHandlerInterface interface {
	CreateMessage(c fiber.Ctx) error
	GetMessage(c fiber.Ctx) error
	ListMessages(c fiber.Ctx) error
	UpdateMessage(c fiber.Ctx) error
	DeleteMessage(c fiber.Ctx) error
}

// MessageHandler handles message template HTTP requests
type MessageHandler struct {
	messageFlow businessflow.MessageFlow
	validator   *validator.Validate
}

func (h *MessageHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MessageHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageFlow businessflow.MessageFlow) *MessageHandler {
	return &MessageHandler{
		messageFlow: messageFlow,
		validator:   newValidator(),
	}
}

// CreateMessage handles adding a new message template
// @Summary Create Message
// @Description Add a new message template
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateMessageRequest true "Message data"
// @Success 201 {object} dto.APIResponse{data=dto.MessageDTO} "Message created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/messages [post]
func (h *MessageHandler) CreateMessage(c fiber.Ctx) error {
	var req dto.CreateMessageRequest
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

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.messageFlow.CreateMessage(requestContext(c, "/api/v1/messages"), &req, metadata)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}

		log.Println("Message creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Message creation failed", "MESSAGE_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Message created successfully", result)
}

// GetMessage handles fetching a single message template
// @Summary Get Message
// @Description Retrieve a message template by ID
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=dto.MessageDTO} "Message retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Message not found"
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message ID", "INVALID_MESSAGE_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.messageFlow.GetMessage(requestContext(c, "/api/v1/messages/"+c.Params("id")), customerID, messageID)
	if err != nil {
		if businessflow.IsMessageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message not found", "MESSAGE_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Get message failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get message", "GET_MESSAGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message retrieved", result)
}

// ListMessages handles listing message templates with pagination
// @Summary List Messages
// @Description Retrieve message templates with pagination
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListMessagesResponse} "Messages retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/messages [get]
func (h *MessageHandler) ListMessages(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListMessagesRequest{
		CustomerID: customerID,
		Page:       parseIntQuery(c, "page", 0),
		PageSize:   parseIntQuery(c, "page_size", 0),
	}

	result, err := h.messageFlow.ListMessages(requestContext(c, "/api/v1/messages"), &req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}

		log.Println("List messages failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list messages", "LIST_MESSAGES_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Messages retrieved", result)
}

// UpdateMessage handles editing a message template
// @Summary Update Message
// @Description Update an existing message template
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param request body dto.UpdateMessageRequest true "Message data"
// @Success 200 {object} dto.APIResponse{data=dto.MessageDTO} "Message updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Message not found"
// @Router /api/v1/messages/{id} [put]
func (h *MessageHandler) UpdateMessage(c fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message ID", "INVALID_MESSAGE_ID", nil)
	}

	var req dto.UpdateMessageRequest
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
	req.MessageID = messageID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.messageFlow.UpdateMessage(requestContext(c, "/api/v1/messages/"+c.Params("id")), &req, metadata)
	if err != nil {
		if businessflow.IsMessageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message not found", "MESSAGE_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Message update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Message update failed", "MESSAGE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message updated successfully", result)
}

// DeleteMessage handles removing a message template
// @Summary Delete Message
// @Description Remove a message template. Fails when any campaign references the message.
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse "Message deleted"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Message not found"
// @Failure 409 {object} dto.APIResponse "Message is referenced by campaigns"
// @Router /api/v1/messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c fiber.Ctx) error {
	messageID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid message ID", "INVALID_MESSAGE_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.messageFlow.DeleteMessage(requestContext(c, "/api/v1/messages/"+c.Params("id")), customerID, messageID, metadata); err != nil {
		if businessflow.IsMessageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message not found", "MESSAGE_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsMessageInUse(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Message is referenced by campaigns", "MESSAGE_IN_USE", nil)
		}

		log.Println("Message deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Message deletion failed", "MESSAGE_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Message deleted successfully", nil)
}
