package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Yatagarasu/models"
	"gorm.io/gorm"
)

// DeliveryAttemptRepositoryImpl implements DeliveryAttemptRepository
type DeliveryAttemptRepositoryImpl struct {
	*BaseRepository[models.DeliveryAttempt, models.DeliveryAttemptFilter]
}

func NewDeliveryAttemptRepository(db *gorm.DB) DeliveryAttemptRepository {
	return &DeliveryAttemptRepositoryImpl{BaseRepository: NewBaseRepository[models.DeliveryAttempt, models.DeliveryAttemptFilter](db)}
}

// ListByCampaign retrieves a campaign's attempts, newest first
func (r *DeliveryAttemptRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.DeliveryAttempt, error) {
	filter := models.DeliveryAttemptFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "attempted_at DESC, id DESC", limit, offset)
}

// CountByCampaignAndStatus counts one campaign's attempts with the given outcome
func (r *DeliveryAttemptRepositoryImpl) CountByCampaignAndStatus(ctx context.Context, campaignID uint, status models.DeliveryAttemptStatus) (int64, error) {
	return r.Count(ctx, models.DeliveryAttemptFilter{CampaignID: &campaignID, Status: &status})
}

// CountByCustomerAndStatus counts attempts across all campaigns owned by a customer
func (r *DeliveryAttemptRepositoryImpl) CountByCustomerAndStatus(ctx context.Context, customerID uint, status models.DeliveryAttemptStatus) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := db.Model(&models.DeliveryAttempt{}).
		Joins("JOIN campaigns ON campaigns.id = delivery_attempts.campaign_id").
		Where("campaigns.customer_id = ? AND delivery_attempts.status = ?", customerID, status).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts by customer: %w", err)
	}

	return count, nil
}

func (r *DeliveryAttemptRepositoryImpl) applyFilter(db *gorm.DB, f models.DeliveryAttemptFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.RecipientID != nil {
		db = db.Where("recipient_id = ?", *f.RecipientID)
	}
	if f.DispatchRunID != nil {
		db = db.Where("dispatch_run_id = ?", *f.DispatchRunID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.AttemptedAfter != nil {
		db = db.Where("attempted_at >= ?", *f.AttemptedAfter)
	}
	if f.AttemptedBefore != nil {
		db = db.Where("attempted_at < ?", *f.AttemptedBefore)
	}
	return db
}

func (r *DeliveryAttemptRepositoryImpl) ByFilter(ctx context.Context, filter models.DeliveryAttemptFilter, orderBy string, limit, offset int) ([]*models.DeliveryAttempt, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DeliveryAttempt{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.DeliveryAttempt
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DeliveryAttemptRepositoryImpl) Count(ctx context.Context, filter models.DeliveryAttemptFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DeliveryAttempt{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DeliveryAttemptRepositoryImpl) Exists(ctx context.Context, filter models.DeliveryAttemptFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
