// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

// RecipientFlow handles recipient address-book management
type RecipientFlow interface {
	CreateRecipient(ctx context.Context, req *dto.CreateRecipientRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error)
	GetRecipient(ctx context.Context, customerID, recipientID uint) (*dto.RecipientDTO, error)
	ListRecipients(ctx context.Context, req *dto.ListRecipientsRequest) (*dto.ListRecipientsResponse, error)
	UpdateRecipient(ctx context.Context, req *dto.UpdateRecipientRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error)
	DeleteRecipient(ctx context.Context, customerID, recipientID uint, metadata *ClientMetadata) error
}

// RecipientFlowImpl implements the recipient business flow
type RecipientFlowImpl struct {
	recipientRepo repository.RecipientRepository
	customerRepo  repository.CustomerRepository
	auditRepo     repository.AuditLogRepository
	authz         *Authorization
	db            *gorm.DB
}

// NewRecipientFlow creates a new recipient flow instance
func NewRecipientFlow(
	recipientRepo repository.RecipientRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) RecipientFlow {
	return &RecipientFlowImpl{
		recipientRepo: recipientRepo,
		customerRepo:  customerRepo,
		auditRepo:     auditRepo,
		authz:         NewAuthorization(),
		db:            db,
	}
}

// CreateRecipient registers a new recipient. Emails are unique across the
// whole address book, not per customer.
func (s *RecipientFlowImpl) CreateRecipient(ctx context.Context, req *dto.CreateRecipientRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error) {
	if err := s.validateRecipientFields(req.Email, req.FullName); err != nil {
		return nil, NewBusinessError("RECIPIENT_VALIDATION_FAILED", "Recipient validation failed", err)
	}

	var recipient *models.Recipient

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		existing, err := s.recipientRepo.ByEmail(txCtx, req.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrRecipientEmailAlreadyExists
		}

		recipient = &models.Recipient{
			Email:      strings.TrimSpace(req.Email),
			FullName:   strings.TrimSpace(req.FullName),
			Comment:    req.Comment,
			CustomerID: &customer.ID,
		}

		return s.recipientRepo.Save(txCtx, recipient)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Recipient creation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionRecipientCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RECIPIENT_CREATION_FAILED", "Recipient creation failed", err)
	}

	msg := fmt.Sprintf("Recipient created: %d", recipient.ID)
	_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionRecipientCreated, msg, true, nil, metadata)

	result := ToRecipientDTO(*recipient)
	return &result, nil
}

// GetRecipient returns a single recipient visible to the requesting customer
func (s *RecipientFlowImpl) GetRecipient(ctx context.Context, customerID, recipientID uint) (*dto.RecipientDTO, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	recipient, err := s.recipientRepo.ByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	if !s.authz.CanView(customer, recipient.CustomerID) {
		return nil, ErrAccessDenied
	}

	result := ToRecipientDTO(*recipient)
	return &result, nil
}

// ListRecipients returns a page of the customer's recipients
func (s *RecipientFlowImpl) ListRecipients(ctx context.Context, req *dto.ListRecipientsRequest) (*dto.ListRecipientsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	filter := models.RecipientFilter{}
	if !s.authz.isManager(customer) {
		filter.CustomerID = &customer.ID
	}
	if req.Search != nil && *req.Search != "" {
		filter.Search = req.Search
	}

	total, err := s.recipientRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	recipients, err := s.recipientRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListRecipientsResponse{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	for _, recipient := range recipients {
		resp.Recipients = append(resp.Recipients, ToRecipientDTO(*recipient))
	}

	return resp, nil
}

// UpdateRecipient modifies a recipient owned by the customer
func (s *RecipientFlowImpl) UpdateRecipient(ctx context.Context, req *dto.UpdateRecipientRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error) {
	if err := s.validateRecipientFields(req.Email, req.FullName); err != nil {
		return nil, NewBusinessError("RECIPIENT_VALIDATION_FAILED", "Recipient validation failed", err)
	}

	var recipient *models.Recipient

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		recipient, err = s.recipientRepo.ByID(txCtx, req.RecipientID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return ErrRecipientNotFound
		}

		if !s.authz.CanManage(customer, recipient.CustomerID) {
			return ErrAccessDenied
		}

		if req.Email != recipient.Email {
			existing, err := s.recipientRepo.ByEmail(txCtx, req.Email)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != recipient.ID {
				return ErrRecipientEmailAlreadyExists
			}
		}

		recipient.Email = strings.TrimSpace(req.Email)
		recipient.FullName = strings.TrimSpace(req.FullName)
		recipient.Comment = req.Comment

		return s.recipientRepo.Update(txCtx, recipient)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Recipient update failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionRecipientUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RECIPIENT_UPDATE_FAILED", "Recipient update failed", err)
	}

	msg := fmt.Sprintf("Recipient updated: %d", recipient.ID)
	_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionRecipientUpdated, msg, true, nil, metadata)

	result := ToRecipientDTO(*recipient)
	return &result, nil
}

// DeleteRecipient removes a recipient and its campaign memberships. Existing
// delivery attempts keep the email snapshot so history survives the delete.
func (s *RecipientFlowImpl) DeleteRecipient(ctx context.Context, customerID, recipientID uint, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, customerID)
		if err != nil {
			return err
		}

		recipient, err := s.recipientRepo.ByID(txCtx, recipientID)
		if err != nil {
			return err
		}
		if recipient == nil {
			return ErrRecipientNotFound
		}

		if !s.authz.CanManage(customer, recipient.CustomerID) {
			return ErrAccessDenied
		}

		return s.recipientRepo.Delete(txCtx, recipientID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Recipient deletion failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customerID, models.AuditActionRecipientDeleted, errMsg, false, &errMsg, metadata)

		return NewBusinessError("RECIPIENT_DELETION_FAILED", "Recipient deletion failed", err)
	}

	msg := fmt.Sprintf("Recipient deleted: %d", recipientID)
	_ = s.createAuditLog(ctx, customerID, models.AuditActionRecipientDeleted, msg, true, nil, metadata)

	return nil
}

// Private helper methods

func (s *RecipientFlowImpl) validateRecipientFields(email, fullName string) error {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return ErrRecipientEmailRequired
	}
	if strings.TrimSpace(fullName) == "" {
		return ErrRecipientFullNameRequired
	}

	return nil
}

func (s *RecipientFlowImpl) createAuditLog(ctx context.Context, customerID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   &customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}

// normalizePagination clamps page inputs to the documented bounds
func normalizePagination(page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if pageSize == 0 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize < 1 || pageSize > utils.MaxPageSize {
		return 0, 0, ErrInvalidPageSize
	}
	return page, pageSize, nil
}
