// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/config"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
)

// StatsFlow serves the home dashboard summary
type StatsFlow interface {
	GetHomeStats(ctx context.Context, customerID uint) (*dto.HomeStatsResponse, error)
}

// StatsFlowImpl implements the stats business flow
type StatsFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.RecipientRepository
	attemptRepo   repository.DeliveryAttemptRepository
	customerRepo  repository.CustomerRepository
	authz         *Authorization
	cacheConfig   *config.CacheConfig
	rc            *redis.Client
}

// NewStatsFlow creates a new stats flow instance
func NewStatsFlow(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.RecipientRepository,
	attemptRepo repository.DeliveryAttemptRepository,
	customerRepo repository.CustomerRepository,
	cacheConfig *config.CacheConfig,
	rc *redis.Client,
) StatsFlow {
	return &StatsFlowImpl{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		attemptRepo:   attemptRepo,
		customerRepo:  customerRepo,
		authz:         NewAuthorization(),
		cacheConfig:   cacheConfig,
		rc:            rc,
	}
}

// GetHomeStats returns the owner-scoped dashboard counters. Managers see the
// global numbers, cached under customer ID zero.
func (s *StatsFlowImpl) GetHomeStats(ctx context.Context, customerID uint) (*dto.HomeStatsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, err
	}

	scopeID := customer.ID
	var ownerFilter *uint
	if s.authz.isManager(customer) {
		scopeID = 0
	} else {
		ownerFilter = &customer.ID
	}

	cacheKey := redisKey(*s.cacheConfig, fmt.Sprintf(utils.HomeStatsCacheKeyFmt, scopeID))

	if s.cacheEnabled() {
		if bs, err := s.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var out dto.HomeStatsResponse
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}

	resp, err := s.buildStats(ctx, ownerFilter)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if bs, err := json.Marshal(resp); err == nil {
			_ = s.rc.Set(ctx, cacheKey, bs, s.cacheConfig.StatsTTL).Err()
		}
	}

	return resp, nil
}

// Private helper methods

func (s *StatsFlowImpl) cacheEnabled() bool {
	return s.rc != nil && s.cacheConfig != nil && s.cacheConfig.Enabled
}

func (s *StatsFlowImpl) buildStats(ctx context.Context, ownerID *uint) (*dto.HomeStatsResponse, error) {
	campaignFilter := models.CampaignFilter{CustomerID: ownerID}
	totalCampaigns, err := s.campaignRepo.Count(ctx, campaignFilter)
	if err != nil {
		return nil, err
	}

	// Active means status resolves to started right now: inside the window
	// and is_active
	now := utils.UTCNow()
	activeFilter := models.CampaignFilter{
		CustomerID:  ownerID,
		IsActive:    utils.ToPtr(true),
		StartBefore: utils.ToPtr(now),
		EndAfter:    utils.ToPtr(now),
	}
	activeCampaigns, err := s.campaignRepo.Count(ctx, activeFilter)
	if err != nil {
		return nil, err
	}

	recipientFilter := models.RecipientFilter{CustomerID: ownerID}
	totalRecipients, err := s.recipientRepo.Count(ctx, recipientFilter)
	if err != nil {
		return nil, err
	}

	var succeeded, failed int64
	if ownerID != nil {
		succeeded, err = s.attemptRepo.CountByCustomerAndStatus(ctx, *ownerID, models.DeliveryAttemptStatusSuccess)
		if err != nil {
			return nil, err
		}
		failed, err = s.attemptRepo.CountByCustomerAndStatus(ctx, *ownerID, models.DeliveryAttemptStatusFailed)
		if err != nil {
			return nil, err
		}
	} else {
		succeeded, err = s.attemptRepo.Count(ctx, models.DeliveryAttemptFilter{Status: utils.ToPtr(models.DeliveryAttemptStatusSuccess)})
		if err != nil {
			return nil, err
		}
		failed, err = s.attemptRepo.Count(ctx, models.DeliveryAttemptFilter{Status: utils.ToPtr(models.DeliveryAttemptStatusFailed)})
		if err != nil {
			return nil, err
		}
	}

	return &dto.HomeStatsResponse{
		TotalCampaigns:    totalCampaigns,
		ActiveCampaigns:   activeCampaigns,
		TotalRecipients:   totalRecipients,
		AttemptsSucceeded: succeeded,
		AttemptsFailed:    failed,
	}, nil
}
