// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

// CustomerManagementFlow holds the manager-only customer administration
// operations
type CustomerManagementFlow interface {
	ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error)
	SetCustomerBlocked(ctx context.Context, req *dto.SetCustomerBlockedRequest, metadata *ClientMetadata) (*dto.AuthCustomerDTO, error)
}

// CustomerManagementFlowImpl implements the customer management business flow
type CustomerManagementFlowImpl struct {
	customerRepo repository.CustomerRepository
	sessionRepo  repository.CustomerSessionRepository
	auditRepo    repository.AuditLogRepository
	authz        *Authorization
	db           *gorm.DB
}

// NewCustomerManagementFlow creates a new customer management flow instance
func NewCustomerManagementFlow(
	customerRepo repository.CustomerRepository,
	sessionRepo repository.CustomerSessionRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) CustomerManagementFlow {
	return &CustomerManagementFlowImpl{
		customerRepo: customerRepo,
		sessionRepo:  sessionRepo,
		auditRepo:    auditRepo,
		authz:        NewAuthorization(),
		db:           db,
	}
}

// ListCustomers returns a page of all customer accounts
func (s *CustomerManagementFlowImpl) ListCustomers(ctx context.Context, req *dto.ListCustomersRequest) (*dto.ListCustomersResponse, error) {
	actor, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	if !s.authz.CanBlockCustomers(actor) {
		return nil, ErrManagerRequired
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	filter := models.CustomerFilter{}
	if req.Email != nil && *req.Email != "" {
		filter.Email = req.Email
	}
	if req.IsBlocked != nil {
		filter.IsBlocked = req.IsBlocked
	}

	total, err := s.customerRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	customers, err := s.customerRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListCustomersResponse{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	for _, customer := range customers {
		resp.Customers = append(resp.Customers, ToAuthCustomerDTO(*customer))
	}

	return resp, nil
}

// SetCustomerBlocked blocks or unblocks a customer account. Blocking also
// expires every live session so the account is cut off immediately. Blocking
// your own account is rejected.
func (s *CustomerManagementFlowImpl) SetCustomerBlocked(ctx context.Context, req *dto.SetCustomerBlockedRequest, metadata *ClientMetadata) (*dto.AuthCustomerDTO, error) {
	var target *models.Customer

	action := models.AuditActionCustomerUnblocked
	if req.Blocked {
		action = models.AuditActionCustomerBlocked
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		actor, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		if !s.authz.CanBlockCustomers(actor) {
			return ErrManagerRequired
		}
		if actor.ID == req.TargetCustomerID && req.Blocked {
			return ErrSelfBlockDenied
		}

		target, err = getCustomer(txCtx, s.customerRepo, req.TargetCustomerID)
		if err != nil {
			return err
		}

		if err := s.customerRepo.SetBlocked(txCtx, target.ID, req.Blocked); err != nil {
			return err
		}
		target.IsBlocked = utils.ToPtr(req.Blocked)

		if req.Blocked {
			return s.sessionRepo.ExpireAllCustomerSessions(txCtx, target.ID)
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Customer block change failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, action, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CUSTOMER_BLOCK_CHANGE_FAILED", "Customer block change failed", err)
	}

	msg := fmt.Sprintf("Customer %d blocked=%t by %d", req.TargetCustomerID, req.Blocked, req.CustomerID)
	_ = s.createAuditLog(ctx, req.CustomerID, action, msg, true, nil, metadata)

	result := ToAuthCustomerDTO(*target)
	return &result, nil
}

// Private helper methods

func (s *CustomerManagementFlowImpl) createAuditLog(ctx context.Context, customerID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
