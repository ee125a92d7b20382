// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/app/services"
	"github.com/amirphl/Yatagarasu/config"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
)

var (
	// Deliveries partitioned by terminal outcome
	dispatchDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_deliveries_total",
			Help: "Total number of individual delivery attempts",
		},
		[]string{"status"},
	)

	// Campaigns partitioned by per-campaign outcome
	dispatchCampaignsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_campaigns_total",
			Help: "Total number of campaigns handled by the dispatch engine",
		},
		[]string{"outcome", "source"},
	)
)

// Skip reasons reported on DispatchResult
const (
	SkipReasonNotStarted     = "not_started"
	SkipReasonNoRecipients   = "no_recipients"
	SkipReasonMissingMessage = "missing_message"
)

// DispatchResult describes the outcome of dispatching one campaign
type DispatchResult struct {
	CampaignID   uint   `json:"campaign_id"`
	SuccessCount int    `json:"success_count"`
	FailedCount  int    `json:"failed_count"`
	Skipped      bool   `json:"skipped"`
	SkipReason   string `json:"skip_reason,omitempty"`
	DryRun       bool   `json:"dry_run"`
}

// BatchOptions selects and configures a batch run
type BatchOptions struct {
	CampaignID *uint
	OwnerEmail *string
	Force      bool
	DryRun     bool
	Source     models.DispatchSource
}

// BatchSummary aggregates per-campaign outcomes: a campaign counts as
// succeeded when at least one delivery succeeded (or a dry run reached the
// send step) and as failed when at least one delivery failed, so a single
// campaign can contribute to both tallies.
type BatchSummary struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// DispatchFlow drives campaign delivery for the CLI, the scheduler and the
// manual send endpoint
type DispatchFlow interface {
	DispatchCampaign(ctx context.Context, campaign *models.Campaign, force, dryRun bool, source models.DispatchSource) (*DispatchResult, error)
	SendCampaign(ctx context.Context, req *dto.SendCampaignRequest, metadata *ClientMetadata) (*DispatchResult, error)
	RunBatch(ctx context.Context, opts BatchOptions) (*BatchSummary, error)
}

// DispatchFlowImpl implements the dispatch engine
type DispatchFlowImpl struct {
	campaignRepo repository.CampaignRepository
	attemptRepo  repository.DeliveryAttemptRepository
	runRepo      repository.DispatchRunRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditLogRepository
	mailer       services.Mailer
	authz        *Authorization
	cacheConfig  *config.CacheConfig
	rc           *redis.Client
	db           *gorm.DB
	logger       *log.Logger
}

// NewDispatchFlow creates a new dispatch flow instance
func NewDispatchFlow(
	campaignRepo repository.CampaignRepository,
	attemptRepo repository.DeliveryAttemptRepository,
	runRepo repository.DispatchRunRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditLogRepository,
	mailer services.Mailer,
	cacheConfig *config.CacheConfig,
	rc *redis.Client,
	db *gorm.DB,
	logger *log.Logger,
) DispatchFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &DispatchFlowImpl{
		campaignRepo: campaignRepo,
		attemptRepo:  attemptRepo,
		runRepo:      runRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		mailer:       mailer,
		authz:        NewAuthorization(),
		cacheConfig:  cacheConfig,
		rc:           rc,
		db:           db,
		logger:       logger,
	}
}

// DispatchCampaign delivers one campaign to its recipient set. The campaign
// must arrive with Message and Recipients loaded; status is resolved from the
// stored fields at call time, never from the cache.
func (s *DispatchFlowImpl) DispatchCampaign(ctx context.Context, campaign *models.Campaign, force, dryRun bool, source models.DispatchSource) (*DispatchResult, error) {
	result := &DispatchResult{CampaignID: campaign.ID, DryRun: dryRun}

	// Preconditions are checked before any write
	if campaign.Message == nil {
		result.Skipped = true
		result.SkipReason = SkipReasonMissingMessage
		dispatchCampaignsTotal.WithLabelValues("skipped", string(source)).Inc()
		return result, ErrCampaignWithoutMessage
	}

	if !force {
		if status := campaign.StatusAt(utils.UTCNow()); status != models.CampaignStatusStarted {
			s.logger.Printf("campaign %d skipped: status %s", campaign.ID, status)
			result.Skipped = true
			result.SkipReason = SkipReasonNotStarted
			dispatchCampaignsTotal.WithLabelValues("skipped", string(source)).Inc()
			return result, nil
		}
	}

	if len(campaign.Recipients) == 0 {
		s.logger.Printf("campaign %d skipped: no recipients", campaign.ID)
		result.Skipped = true
		result.SkipReason = SkipReasonNoRecipients
		dispatchCampaignsTotal.WithLabelValues("skipped", string(source)).Inc()
		return result, nil
	}

	if dryRun {
		s.logger.Printf("campaign %d dry run: would deliver %q to %d recipients", campaign.ID, campaign.Message.Subject, len(campaign.Recipients))
		dispatchCampaignsTotal.WithLabelValues("dry_run", string(source)).Inc()
		return result, nil
	}

	run := &models.DispatchRun{
		CampaignID: campaign.ID,
		TotalCount: len(campaign.Recipients),
		Forced:     utils.ToPtr(force),
		Source:     source,
		StartedAt:  utils.UTCNow(),
	}
	run.RecipientIDs = make([]int64, 0, len(campaign.Recipients))
	for _, recipient := range campaign.Recipients {
		run.RecipientIDs = append(run.RecipientIDs, int64(recipient.ID))
	}
	if err := s.runRepo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create dispatch run: %w", err)
	}

	// Every recipient is visited exactly once; failures never abort the loop
	for _, recipient := range campaign.Recipients {
		response, err := s.mailer.Deliver(ctx, recipient.Email, recipient.FullName, campaign.Message.Subject, campaign.Message.Body)

		attempt := &models.DeliveryAttempt{
			CampaignID:     campaign.ID,
			RecipientID:    recipient.ID,
			RecipientEmail: recipient.Email,
			DispatchRunID:  &run.ID,
		}

		if err != nil {
			result.FailedCount++
			attempt.Status = models.DeliveryAttemptStatusFailed
			attempt.Response = err.Error()
			dispatchDeliveriesTotal.WithLabelValues("failed").Inc()
			s.logger.Printf("campaign %d: delivery to %s failed: %v", campaign.ID, recipient.Email, err)
		} else {
			result.SuccessCount++
			attempt.Status = models.DeliveryAttemptStatusSuccess
			if response == "" {
				response = utils.DeliveredResponse
			}
			attempt.Response = response
			dispatchDeliveriesTotal.WithLabelValues("success").Inc()
		}

		if err := s.attemptRepo.Save(ctx, attempt); err != nil {
			s.logger.Printf("campaign %d: failed to record attempt for %s: %v", campaign.ID, recipient.Email, err)
		}
	}

	run.SuccessCount = result.SuccessCount
	run.FailedCount = result.FailedCount
	run.FinishedAt = utils.UTCNowPtr()
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.logger.Printf("campaign %d: failed to finalize dispatch run %d: %v", campaign.ID, run.ID, err)
	}

	invalidateCampaignCaches(ctx, s.rc, s.cacheConfig, campaign.ID, campaign.CustomerID)

	desc := fmt.Sprintf("Campaign dispatched: %d success=%d failed=%d source=%s", campaign.ID, result.SuccessCount, result.FailedCount, source)
	_ = s.createAuditLog(ctx, campaign.CustomerID, models.AuditActionCampaignDispatched, desc, result.FailedCount == 0, nil)

	outcome := "succeeded"
	if result.FailedCount > 0 {
		outcome = "partial"
	}
	if result.SuccessCount == 0 && result.FailedCount > 0 {
		outcome = "failed"
	}
	dispatchCampaignsTotal.WithLabelValues(outcome, string(source)).Inc()

	return result, nil
}

// SendCampaign is the manual send operation behind the API
func (s *DispatchFlowImpl) SendCampaign(ctx context.Context, req *dto.SendCampaignRequest, metadata *ClientMetadata) (*DispatchResult, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	campaign, err := s.campaignRepo.ByIDWithRelations(ctx, req.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	if !s.authz.CanManage(customer, campaign.CustomerID) {
		return nil, ErrAccessDenied
	}

	result, err := s.DispatchCampaign(ctx, campaign, req.Force, req.DryRun, models.DispatchSourceAPI)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_DISPATCH_FAILED", "Campaign dispatch failed", err)
	}
	if result.Skipped && result.SkipReason == SkipReasonNotStarted {
		return nil, NewBusinessError("CAMPAIGN_DISPATCH_FAILED", "Campaign dispatch failed", ErrCampaignNotStarted)
	}
	if result.Skipped && result.SkipReason == SkipReasonNoRecipients {
		return nil, NewBusinessError("CAMPAIGN_DISPATCH_FAILED", "Campaign dispatch failed", ErrCampaignNoRecipients)
	}

	return result, nil
}

// RunBatch selects eligible campaigns and dispatches each in turn. Shared by
// the CLI and the scheduler; selection always works from stored fields.
func (s *DispatchFlowImpl) RunBatch(ctx context.Context, opts BatchOptions) (*BatchSummary, error) {
	summary := &BatchSummary{}

	campaigns, err := s.selectCampaigns(ctx, opts)
	if err != nil {
		// An unknown campaign ID or owner email is reported and the run
		// completes normally with nothing selected
		if !IsCampaignNotFound(err) && !IsOwnerNotFound(err) {
			return nil, err
		}
		summary.Errors = append(summary.Errors, err.Error())
		campaigns = nil
	}

	for _, campaign := range campaigns {
		summary.Total++

		result, err := s.DispatchCampaign(ctx, campaign, opts.Force, opts.DryRun, opts.Source)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("campaign %d: %v", campaign.ID, err))
			continue
		}

		switch {
		case result.Skipped:
			summary.Skipped++
			if result.SkipReason != "" {
				_ = s.createAuditLog(ctx, campaign.CustomerID, models.AuditActionCampaignSkipped,
					fmt.Sprintf("Campaign skipped: %d reason=%s", campaign.ID, result.SkipReason), true, nil)
			}
		case result.DryRun:
			// A dry run that reached the send step counts as a success
			summary.Succeeded++
		default:
			if result.SuccessCount > 0 {
				summary.Succeeded++
			}
			if result.FailedCount > 0 {
				summary.Failed++
			}
		}
	}

	s.logger.Printf("batch run complete: total=%d succeeded=%d failed=%d skipped=%d force=%t dry_run=%t source=%s",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped, opts.Force, opts.DryRun, opts.Source)

	return summary, nil
}

// Private helper methods

// selectCampaigns resolves the batch target set. An explicit campaign ID
// bypasses the window filter (the status check still runs later unless
// forced). An unknown campaign ID or owner email returns the matching
// sentinel wrapped with the lookup key; RunBatch turns both into a reported
// empty selection.
func (s *DispatchFlowImpl) selectCampaigns(ctx context.Context, opts BatchOptions) ([]*models.Campaign, error) {
	if opts.CampaignID != nil {
		campaign, err := s.campaignRepo.ByIDWithRelations(ctx, *opts.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign == nil {
			s.logger.Printf("campaign %d not found, no campaigns selected", *opts.CampaignID)
			return nil, fmt.Errorf("%w: id %d", ErrCampaignNotFound, *opts.CampaignID)
		}
		return []*models.Campaign{campaign}, nil
	}

	var owner *models.Customer
	if opts.OwnerEmail != nil && *opts.OwnerEmail != "" {
		var err error
		owner, err = s.customerRepo.ByEmail(ctx, *opts.OwnerEmail)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			s.logger.Printf("owner %q not found, no campaigns selected", *opts.OwnerEmail)
			return nil, fmt.Errorf("%w: %s", ErrOwnerNotFound, *opts.OwnerEmail)
		}
	}

	campaigns, err := s.campaignRepo.ListEligible(ctx, utils.UTCNow(), opts.Force)
	if err != nil {
		return nil, err
	}

	if owner == nil {
		return campaigns, nil
	}

	filtered := campaigns[:0]
	for _, campaign := range campaigns {
		if campaign.CustomerID != nil && *campaign.CustomerID == owner.ID {
			filtered = append(filtered, campaign)
		}
	}
	return filtered, nil
}

func (s *DispatchFlowImpl) createAuditLog(ctx context.Context, customerID *uint, action, description string, success bool, errorMsg *string) error {
	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
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
