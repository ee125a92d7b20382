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

// MessageFlow handles reusable message template management
type MessageFlow interface {
	CreateMessage(ctx context.Context, req *dto.CreateMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error)
	GetMessage(ctx context.Context, customerID, messageID uint) (*dto.MessageDTO, error)
	ListMessages(ctx context.Context, req *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error)
	UpdateMessage(ctx context.Context, req *dto.UpdateMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error)
	DeleteMessage(ctx context.Context, customerID, messageID uint, metadata *ClientMetadata) error
}

// MessageFlowImpl implements the message business flow
type MessageFlowImpl struct {
	messageRepo  repository.MessageRepository
	campaignRepo repository.CampaignRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditLogRepository
	authz        *Authorization
	db           *gorm.DB
}

// NewMessageFlow creates a new message flow instance
func NewMessageFlow(
	messageRepo repository.MessageRepository,
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) MessageFlow {
	return &MessageFlowImpl{
		messageRepo:  messageRepo,
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		authz:        NewAuthorization(),
		db:           db,
	}
}

// CreateMessage stores a new message template
func (s *MessageFlowImpl) CreateMessage(ctx context.Context, req *dto.CreateMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error) {
	if err := s.validateMessageFields(req.Subject, req.Body); err != nil {
		return nil, NewBusinessError("MESSAGE_VALIDATION_FAILED", "Message validation failed", err)
	}

	var message *models.Message

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		message = &models.Message{
			Subject:    strings.TrimSpace(req.Subject),
			Body:       req.Body,
			CustomerID: &customer.ID,
		}

		return s.messageRepo.Save(txCtx, message)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Message creation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionMessageCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("MESSAGE_CREATION_FAILED", "Message creation failed", err)
	}

	msg := fmt.Sprintf("Message created: %d", message.ID)
	_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionMessageCreated, msg, true, nil, metadata)

	result := ToMessageDTO(*message)
	return &result, nil
}

// GetMessage returns a single message visible to the requesting customer
func (s *MessageFlowImpl) GetMessage(ctx context.Context, customerID, messageID uint) (*dto.MessageDTO, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	message, err := s.messageRepo.ByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}

	if !s.authz.CanView(customer, message.CustomerID) {
		return nil, ErrAccessDenied
	}

	result := ToMessageDTO(*message)
	return &result, nil
}

// ListMessages returns a page of the customer's message templates
func (s *MessageFlowImpl) ListMessages(ctx context.Context, req *dto.ListMessagesRequest) (*dto.ListMessagesResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	filter := models.MessageFilter{}
	if !s.authz.isManager(customer) {
		filter.CustomerID = &customer.ID
	}

	total, err := s.messageRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListMessagesResponse{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, ToMessageDTO(*message))
	}

	return resp, nil
}

// UpdateMessage modifies a message template owned by the customer
func (s *MessageFlowImpl) UpdateMessage(ctx context.Context, req *dto.UpdateMessageRequest, metadata *ClientMetadata) (*dto.MessageDTO, error) {
	if err := s.validateMessageFields(req.Subject, req.Body); err != nil {
		return nil, NewBusinessError("MESSAGE_VALIDATION_FAILED", "Message validation failed", err)
	}

	var message *models.Message

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		message, err = s.messageRepo.ByID(txCtx, req.MessageID)
		if err != nil {
			return err
		}
		if message == nil {
			return ErrMessageNotFound
		}

		if !s.authz.CanManage(customer, message.CustomerID) {
			return ErrAccessDenied
		}

		message.Subject = strings.TrimSpace(req.Subject)
		message.Body = req.Body

		return s.messageRepo.Update(txCtx, message)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Message update failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionMessageUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("MESSAGE_UPDATE_FAILED", "Message update failed", err)
	}

	msg := fmt.Sprintf("Message updated: %d", message.ID)
	_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionMessageUpdated, msg, true, nil, metadata)

	result := ToMessageDTO(*message)
	return &result, nil
}

// DeleteMessage removes a template. Templates referenced by any campaign are
// protected; the campaigns must be deleted first.
func (s *MessageFlowImpl) DeleteMessage(ctx context.Context, customerID, messageID uint, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, customerID)
		if err != nil {
			return err
		}

		message, err := s.messageRepo.ByID(txCtx, messageID)
		if err != nil {
			return err
		}
		if message == nil {
			return ErrMessageNotFound
		}

		if !s.authz.CanManage(customer, message.CustomerID) {
			return ErrAccessDenied
		}

		inUse, err := s.campaignRepo.CountByMessage(txCtx, messageID)
		if err != nil {
			return err
		}
		if inUse > 0 {
			return ErrMessageInUse
		}

		return s.messageRepo.Delete(txCtx, messageID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Message deletion failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customerID, models.AuditActionMessageDeleted, errMsg, false, &errMsg, metadata)

		return NewBusinessError("MESSAGE_DELETION_FAILED", "Message deletion failed", err)
	}

	msg := fmt.Sprintf("Message deleted: %d", messageID)
	_ = s.createAuditLog(ctx, customerID, models.AuditActionMessageDeleted, msg, true, nil, metadata)

	return nil
}

// Private helper methods

func (s *MessageFlowImpl) validateMessageFields(subject, body string) error {
	if strings.TrimSpace(subject) == "" {
		return ErrMessageSubjectRequired
	}
	if strings.TrimSpace(body) == "" {
		return ErrMessageBodyRequired
	}

	return nil
}

func (s *MessageFlowImpl) createAuditLog(ctx context.Context, customerID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
