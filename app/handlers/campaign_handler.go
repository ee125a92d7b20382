// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"time"

	"github.com/amirphl/Yatagarasu/app/dto"
	businessflow "github.com/amirphl/Yatagarasu/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	ToggleCampaign(c fiber.Ctx) error
	DeleteCampaign(c fiber.Ctx) error
	GetCampaignStatus(c fiber.Ctx) error
	SendCampaign(c fiber.Ctx) error
	ListAttempts(c fiber.Ctx) error
	ExportAttempts(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	dispatchFlow businessflow.DispatchFlow
	reportFlow   businessflow.ReportFlow
	validator    *validator.Validate
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

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, dispatchFlow businessflow.DispatchFlow, reportFlow businessflow.ReportFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		dispatchFlow: dispatchFlow,
		reportFlow:   reportFlow,
		validator:    newValidator(),
	}
}

// CreateCampaign handles the campaign creation process
// @Summary Create Campaign
// @Description Create a new campaign with a time window, message, and recipients
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCampaignRequest true "Campaign creation data"
// @Success 201 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid time window"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Message or recipient not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
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

	// Call business logic with proper context
	result, err := h.campaignFlow.CreateCampaign(requestContext(c, "/api/v1/campaigns"), &req, metadata)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignStartAfterEnd(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign start time must be before end time", "START_AFTER_END", nil)
		}
		if businessflow.IsCampaignStartInPast(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign start time cannot be in the past", "START_IN_PAST", nil)
		}
		if businessflow.IsMessageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message not found", "MESSAGE_NOT_FOUND", nil)
		}
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Campaign creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// GetCampaign handles fetching a single campaign
// @Summary Get Campaign
// @Description Retrieve a campaign by ID with its message and recipients
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaign(requestContext(c, "/api/v1/campaigns/"+c.Params("id")), customerID, campaignID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Get campaign failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign", "GET_CAMPAIGN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved", result)
}

// ListCampaigns handles listing campaigns with pagination and filters
// @Summary List Campaigns
// @Description Retrieve campaigns with pagination. Each campaign carries its derived status.
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(20)
// @Param is_active query bool false "Filter by active flag"
// @Success 200 {object} dto.APIResponse{data=dto.ListCampaignsResponse} "Campaigns retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid pagination"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListCampaignsRequest{
		CustomerID: customerID,
		Page:       parseIntQuery(c, "page", 0),
		PageSize:   parseIntQuery(c, "page_size", 0),
	}
	switch c.Query("is_active") {
	case "true":
		v := true
		req.IsActive = &v
	case "false":
		v := false
		req.IsActive = &v
	}

	result, err := h.campaignFlow.ListCampaigns(requestContext(c, "/api/v1/campaigns"), &req)
	if err != nil {
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}

		log.Println("List campaigns failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved", result)
}

// UpdateCampaign handles the campaign update process
// @Summary Update Campaign
// @Description Update an existing campaign. Only provided fields are changed.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Param request body dto.UpdateCampaignRequest true "Campaign update data"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid time window"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	var req dto.UpdateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID
	req.CampaignID = campaignID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.UpdateCampaign(requestContext(c, "/api/v1/campaigns/"+c.Params("id")), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided", "NO_FIELDS_PROVIDED", nil)
		}
		if businessflow.IsCampaignStartAfterEnd(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign start time must be before end time", "START_AFTER_END", nil)
		}
		if businessflow.IsMessageNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Message not found", "MESSAGE_NOT_FOUND", nil)
		}
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}

		log.Println("Campaign update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// ToggleCampaign flips the campaign's active flag
// @Summary Toggle Campaign
// @Description Flip the campaign's active flag
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignDTO} "Campaign toggled"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id}/toggle [post]
func (h *CampaignHandler) ToggleCampaign(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.ToggleCampaign(requestContext(c, "/api/v1/campaigns/"+c.Params("id")+"/toggle"), customerID, campaignID, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Campaign toggle failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign toggle failed", "CAMPAIGN_TOGGLE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign toggled successfully", result)
}

// DeleteCampaign handles removing a campaign
// @Summary Delete Campaign
// @Description Remove a campaign and its recipient links
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse "Campaign deleted"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.campaignFlow.DeleteCampaign(requestContext(c, "/api/v1/campaigns/"+c.Params("id")), customerID, campaignID, metadata); err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Campaign deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign deletion failed", "CAMPAIGN_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign deleted successfully", nil)
}

// GetCampaignStatus returns the derived campaign status, served from cache when possible
// @Summary Get Campaign Status
// @Description Retrieve the campaign's derived status (created, started, or completed)
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=dto.CampaignStatusResponse} "Status retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id}/status [get]
func (h *CampaignHandler) GetCampaignStatus(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaignStatus(requestContext(c, "/api/v1/campaigns/"+c.Params("id")+"/status"), customerID, campaignID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Get campaign status failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get campaign status", "GET_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign status retrieved", result)
}

// SendCampaign triggers an immediate dispatch of the campaign
// @Summary Send Campaign
// @Description Dispatch the campaign's message to all recipients. Each recipient gets exactly one delivery attempt per run.
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Param request body dto.SendCampaignRequest false "Dispatch options"
// @Success 200 {object} dto.APIResponse{data=object{campaign_id=int,success_count=int,failed_count=int,dry_run=bool}} "Dispatch finished"
// @Failure 400 {object} dto.APIResponse "Campaign not started or has no recipients"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/campaigns/{id}/send [post]
func (h *CampaignHandler) SendCampaign(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	var req dto.SendCampaignRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID
	req.CampaignID = campaignID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	// Dispatch can outlive the default timeout for large recipient sets
	result, err := h.dispatchFlow.SendCampaign(requestContextWithTimeout(c, "/api/v1/campaigns/"+c.Params("id")+"/send", 5*time.Minute), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsCampaignNotStarted(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign is not in started status", "CAMPAIGN_NOT_STARTED", nil)
		}
		if businessflow.IsCampaignWithoutMessage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has no message", "CAMPAIGN_WITHOUT_MESSAGE", nil)
		}
		if businessflow.IsCampaignNoRecipients(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign has no recipients", "CAMPAIGN_NO_RECIPIENTS", nil)
		}

		log.Println("Campaign dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign dispatch failed", "CAMPAIGN_DISPATCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign dispatch finished", fiber.Map{
		"campaign_id":   result.CampaignID,
		"success_count": result.SuccessCount,
		"failed_count":  result.FailedCount,
		"dry_run":       result.DryRun,
	})
}

// ListAttempts handles listing delivery attempts for a campaign
// @Summary List Delivery Attempts
// @Description Retrieve the campaign's delivery attempts with pagination
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 100)" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ListDeliveryAttemptsResponse} "Attempts retrieved"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id}/attempts [get]
func (h *CampaignHandler) ListAttempts(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := dto.ListDeliveryAttemptsRequest{
		CustomerID: customerID,
		CampaignID: campaignID,
		Page:       parseIntQuery(c, "page", 0),
		PageSize:   parseIntQuery(c, "page_size", 0),
	}

	result, err := h.campaignFlow.ListAttempts(requestContext(c, "/api/v1/campaigns/"+c.Params("id")+"/attempts"), &req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}
		if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid pagination", "INVALID_PAGINATION", nil)
		}

		log.Println("List attempts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list attempts", "LIST_ATTEMPTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Delivery attempts retrieved", result)
}

// ExportAttempts downloads the campaign's delivery attempts as an XLSX workbook
// @Summary Export Delivery Attempts
// @Description Download the campaign's delivery attempts as an XLSX file
// @Tags Campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "Campaign ID"
// @Success 200 {file} binary "XLSX file"
// @Failure 403 {object} dto.APIResponse "Access denied"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /api/v1/campaigns/{id}/attempts/export [get]
func (h *CampaignHandler) ExportAttempts(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", nil)
	}

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	filename, content, err := h.reportFlow.ExportAttemptsXLSX(requestContext(c, "/api/v1/campaigns/"+c.Params("id")+"/attempts/export"), customerID, campaignID)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsAccessDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Access denied", "ACCESS_DENIED", nil)
		}

		log.Println("Export attempts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export attempts", "EXPORT_ATTEMPTS_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(content)
}
