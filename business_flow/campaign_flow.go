// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/config"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CampaignFlow handles campaign lifecycle management
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	GetCampaign(ctx context.Context, customerID, campaignID uint) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	ToggleCampaign(ctx context.Context, customerID, campaignID uint, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	DeleteCampaign(ctx context.Context, customerID, campaignID uint, metadata *ClientMetadata) error
	GetCampaignStatus(ctx context.Context, customerID, campaignID uint) (*dto.CampaignStatusResponse, error)
	ListAttempts(ctx context.Context, req *dto.ListDeliveryAttemptsRequest) (*dto.ListDeliveryAttemptsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	messageRepo   repository.MessageRepository
	recipientRepo repository.RecipientRepository
	attemptRepo   repository.DeliveryAttemptRepository
	customerRepo  repository.CustomerRepository
	auditRepo     repository.AuditLogRepository
	authz         *Authorization
	cacheConfig   *config.CacheConfig
	rc            *redis.Client
	db            *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	messageRepo repository.MessageRepository,
	recipientRepo repository.RecipientRepository,
	attemptRepo repository.DeliveryAttemptRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	cacheConfig *config.CacheConfig,
	rc *redis.Client,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:  campaignRepo,
		messageRepo:   messageRepo,
		recipientRepo: recipientRepo,
		attemptRepo:   attemptRepo,
		customerRepo:  customerRepo,
		auditRepo:     auditRepo,
		authz:         NewAuthorization(),
		cacheConfig:   cacheConfig,
		rc:            rc,
		db:            db,
	}
}

// CreateCampaign creates a campaign with its time window and recipient set
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	if err := s.validateWindow(req.StartTime, req.EndTime, true); err != nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", err)
	}

	var campaign *models.Campaign

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		message, err := s.messageRepo.ByID(txCtx, req.MessageID)
		if err != nil {
			return err
		}
		if message == nil {
			return ErrMessageNotFound
		}
		if !s.authz.CanView(customer, message.CustomerID) {
			return ErrAccessDenied
		}

		recipients, err := s.loadRecipients(txCtx, customer, req.RecipientIDs)
		if err != nil {
			return err
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		campaign = &models.Campaign{
			StartTime:  req.StartTime.UTC(),
			EndTime:    req.EndTime.UTC(),
			IsActive:   utils.ToPtr(isActive),
			MessageID:  message.ID,
			CustomerID: &customer.ID,
		}

		if err := s.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}

		if len(recipients) > 0 {
			if err := s.campaignRepo.ReplaceRecipients(txCtx, campaign, derefRecipients(recipients)); err != nil {
				return err
			}
		}

		campaign, err = s.campaignRepo.ByIDWithRelations(txCtx, campaign.ID)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionCampaignCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	msg := fmt.Sprintf("Campaign created: %d", campaign.ID)
	_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	s.invalidateStatsCaches(ctx, campaign.CustomerID)

	result := ToCampaignDTO(*campaign, utils.UTCNow())
	return &result, nil
}

// GetCampaign returns a single campaign with message, recipients and derived status
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, customerID, campaignID uint) (*dto.CampaignDTO, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaignRepo.ByIDWithRelations(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	if !s.authz.CanView(customer, campaign.CustomerID) {
		return nil, ErrAccessDenied
	}

	result := ToCampaignDTO(*campaign, utils.UTCNow())
	return &result, nil
}

// ListCampaigns returns a page of campaigns with statuses derived at response time
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	filter := models.CampaignFilter{}
	if !s.authz.isManager(customer) {
		filter.CustomerID = &customer.ID
	}
	if req.IsActive != nil {
		filter.IsActive = req.IsActive
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	now := utils.UTCNow()
	resp := &dto.ListCampaignsResponse{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	for _, campaign := range campaigns {
		resp.Campaigns = append(resp.Campaigns, ToCampaignDTO(*campaign, now))
	}

	return resp, nil
}

// UpdateCampaign modifies window, message, recipients or active flag. The
// start-not-in-past rule binds at creation only, so old campaigns stay
// editable.
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	if req.StartTime == nil && req.EndTime == nil && req.MessageID == nil && req.RecipientIDs == nil && req.IsActive == nil {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", ErrCampaignUpdateRequired)
	}

	var campaign *models.Campaign

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		campaign, err = s.campaignRepo.ByID(txCtx, req.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}

		if !s.authz.CanManage(customer, campaign.CustomerID) {
			return ErrAccessDenied
		}

		startTime := campaign.StartTime
		endTime := campaign.EndTime
		if req.StartTime != nil {
			startTime = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			endTime = req.EndTime.UTC()
		}
		if err := s.validateWindow(startTime, endTime, false); err != nil {
			return err
		}
		campaign.StartTime = startTime
		campaign.EndTime = endTime

		if req.MessageID != nil {
			message, err := s.messageRepo.ByID(txCtx, *req.MessageID)
			if err != nil {
				return err
			}
			if message == nil {
				return ErrMessageNotFound
			}
			if !s.authz.CanView(customer, message.CustomerID) {
				return ErrAccessDenied
			}
			campaign.MessageID = message.ID
		}

		if req.IsActive != nil {
			campaign.IsActive = req.IsActive
		}

		if err := s.campaignRepo.Update(txCtx, campaign); err != nil {
			return err
		}

		if req.RecipientIDs != nil {
			recipients, err := s.loadRecipients(txCtx, customer, *req.RecipientIDs)
			if err != nil {
				return err
			}
			if err := s.campaignRepo.ReplaceRecipients(txCtx, campaign, derefRecipients(recipients)); err != nil {
				return err
			}
		}

		campaign, err = s.campaignRepo.ByIDWithRelations(txCtx, campaign.ID)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign update failed: %s", err.Error())
		_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionCampaignUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	msg := fmt.Sprintf("Campaign updated: %d", campaign.ID)
	_ = s.createAuditLog(ctx, req.CustomerID, models.AuditActionCampaignUpdated, msg, true, nil, metadata)

	s.InvalidateCampaignCaches(ctx, campaign.ID, campaign.CustomerID)

	result := ToCampaignDTO(*campaign, utils.UTCNow())
	return &result, nil
}

// ToggleCampaign flips the is_active flag
func (s *CampaignFlowImpl) ToggleCampaign(ctx context.Context, customerID, campaignID uint, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	var campaign *models.Campaign

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, customerID)
		if err != nil {
			return err
		}

		campaign, err = s.campaignRepo.ByID(txCtx, campaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}

		if !s.authz.CanToggleCampaign(customer, campaign.CustomerID) {
			return ErrAccessDenied
		}

		campaign.IsActive = utils.ToPtr(!utils.IsTrue(campaign.IsActive))

		return s.campaignRepo.Update(txCtx, campaign)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign toggle failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customerID, models.AuditActionCampaignToggled, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_TOGGLE_FAILED", "Campaign toggle failed", err)
	}

	msg := fmt.Sprintf("Campaign toggled: %d active=%t", campaign.ID, utils.IsTrue(campaign.IsActive))
	_ = s.createAuditLog(ctx, customerID, models.AuditActionCampaignToggled, msg, true, nil, metadata)

	s.InvalidateCampaignCaches(ctx, campaign.ID, campaign.CustomerID)

	result := ToCampaignDTO(*campaign, utils.UTCNow())
	return &result, nil
}

// DeleteCampaign removes a campaign, its memberships and its attempt history
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, customerID, campaignID uint, metadata *ClientMetadata) error {
	var ownerID *uint

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		customer, err := getCustomer(txCtx, s.customerRepo, customerID)
		if err != nil {
			return err
		}

		campaign, err := s.campaignRepo.ByID(txCtx, campaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}

		if !s.authz.CanManage(customer, campaign.CustomerID) {
			return ErrAccessDenied
		}

		ownerID = campaign.CustomerID

		return s.campaignRepo.Delete(txCtx, campaignID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign deletion failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customerID, models.AuditActionCampaignDeleted, errMsg, false, &errMsg, metadata)

		return NewBusinessError("CAMPAIGN_DELETION_FAILED", "Campaign deletion failed", err)
	}

	msg := fmt.Sprintf("Campaign deleted: %d", campaignID)
	_ = s.createAuditLog(ctx, customerID, models.AuditActionCampaignDeleted, msg, true, nil, metadata)

	s.InvalidateCampaignCaches(ctx, campaignID, ownerID)

	return nil
}

// GetCampaignStatus resolves the campaign status through the read cache. The
// cached value may lag the stored fields by at most the configured TTL;
// dispatch never consults it.
func (s *CampaignFlowImpl) GetCampaignStatus(ctx context.Context, customerID, campaignID uint) (*dto.CampaignStatusResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	cacheKey := redisKey(*s.cacheConfig, fmt.Sprintf(utils.CampaignStatusCacheKeyFmt, campaignID))

	if s.cacheEnabled() {
		if cached, err := s.rc.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			// Ownership still has to be checked on cache hits
			campaign, err := s.campaignRepo.ByID(ctx, campaignID)
			if err != nil {
				return nil, err
			}
			if campaign == nil {
				return nil, ErrCampaignNotFound
			}
			if !s.authz.CanView(customer, campaign.CustomerID) {
				return nil, ErrAccessDenied
			}
			return &dto.CampaignStatusResponse{CampaignID: campaignID, Status: cached, Cached: true}, nil
		}
	}

	campaign, err := s.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if !s.authz.CanView(customer, campaign.CustomerID) {
		return nil, ErrAccessDenied
	}

	status := campaign.StatusAt(utils.UTCNow()).String()

	if s.cacheEnabled() {
		_ = s.rc.Set(ctx, cacheKey, status, s.statusTTL()).Err()
	}

	return &dto.CampaignStatusResponse{CampaignID: campaignID, Status: status, Cached: false}, nil
}

// ListAttempts returns a page of delivery attempts for a campaign. The first
// page with default size is served through the cache since it backs the
// campaign detail view.
func (s *CampaignFlowImpl) ListAttempts(ctx context.Context, req *dto.ListDeliveryAttemptsRequest) (*dto.ListDeliveryAttemptsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaignRepo.ByID(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if !s.authz.CanView(customer, campaign.CustomerID) {
		return nil, ErrAccessDenied
	}

	page, pageSize, err := normalizePagination(req.Page, req.PageSize)
	if err != nil {
		return nil, err
	}

	cacheKey := redisKey(*s.cacheConfig, fmt.Sprintf(utils.CampaignAttemptsCacheKeyFmt, req.CampaignID))
	cacheable := page == 1 && pageSize == utils.DefaultPageSize

	if cacheable && s.cacheEnabled() {
		if bs, err := s.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var out dto.ListDeliveryAttemptsResponse
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}

	filter := models.DeliveryAttemptFilter{CampaignID: &req.CampaignID}

	total, err := s.attemptRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	attempts, err := s.attemptRepo.ByFilter(ctx, filter, "attempted_at DESC, id DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	resp := &dto.ListDeliveryAttemptsResponse{
		CampaignID: req.CampaignID,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
	}
	for _, attempt := range attempts {
		resp.Attempts = append(resp.Attempts, ToDeliveryAttemptDTO(*attempt))
	}

	if cacheable && s.cacheEnabled() {
		if bs, err := json.Marshal(resp); err == nil {
			_ = s.rc.Set(ctx, cacheKey, bs, s.cacheConfig.AttemptsTTL).Err()
		}
	}

	return resp, nil
}

// InvalidateCampaignCaches drops the exact cache keys affected by a campaign
// write. Keys are always enumerated, never pattern-matched.
func (s *CampaignFlowImpl) InvalidateCampaignCaches(ctx context.Context, campaignID uint, ownerID *uint) {
	invalidateCampaignCaches(ctx, s.rc, s.cacheConfig, campaignID, ownerID)
}

func invalidateCampaignCaches(ctx context.Context, rc *redis.Client, cfg *config.CacheConfig, campaignID uint, ownerID *uint) {
	if rc == nil || cfg == nil || !cfg.Enabled {
		return
	}

	keys := []string{
		redisKey(*cfg, fmt.Sprintf(utils.CampaignStatusCacheKeyFmt, campaignID)),
		redisKey(*cfg, fmt.Sprintf(utils.CampaignAttemptsCacheKeyFmt, campaignID)),
		redisKey(*cfg, fmt.Sprintf(utils.HomeStatsCacheKeyFmt, uint(0))),
	}
	if ownerID != nil {
		keys = append(keys, redisKey(*cfg, fmt.Sprintf(utils.HomeStatsCacheKeyFmt, *ownerID)))
	}

	_ = rc.Del(ctx, keys...).Err()
}

// Private helper methods

func (s *CampaignFlowImpl) cacheEnabled() bool {
	return s.rc != nil && s.cacheConfig != nil && s.cacheConfig.Enabled
}

func (s *CampaignFlowImpl) statusTTL() time.Duration {
	ttl := s.cacheConfig.StatusTTL
	if ttl <= 0 || ttl > utils.MaxStatusCacheTTL {
		ttl = utils.MaxStatusCacheTTL
	}
	return ttl
}

func (s *CampaignFlowImpl) invalidateStatsCaches(ctx context.Context, ownerID *uint) {
	if !s.cacheEnabled() {
		return
	}

	keys := []string{redisKey(*s.cacheConfig, fmt.Sprintf(utils.HomeStatsCacheKeyFmt, uint(0)))}
	if ownerID != nil {
		keys = append(keys, redisKey(*s.cacheConfig, fmt.Sprintf(utils.HomeStatsCacheKeyFmt, *ownerID)))
	}

	_ = s.rc.Del(ctx, keys...).Err()
}

func (s *CampaignFlowImpl) validateWindow(startTime, endTime time.Time, creating bool) error {
	if !startTime.Before(endTime) {
		return ErrCampaignStartAfterEnd
	}
	// Small allowance so "now" windows survive request latency
	if creating && startTime.Before(utils.UTCNow().Add(-time.Minute)) {
		return ErrCampaignStartInPast
	}

	return nil
}

func (s *CampaignFlowImpl) loadRecipients(ctx context.Context, customer *models.Customer, recipientIDs []uint) ([]*models.Recipient, error) {
	recipients := make([]*models.Recipient, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		recipient, err := s.recipientRepo.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if recipient == nil {
			return nil, ErrRecipientNotFound
		}
		if !s.authz.CanView(customer, recipient.CustomerID) {
			return nil, ErrAccessDenied
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

func derefRecipients(recipients []*models.Recipient) []models.Recipient {
	out := make([]models.Recipient, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, *r)
	}
	return out
}

func (s *CampaignFlowImpl) createAuditLog(ctx context.Context, customerID uint, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
