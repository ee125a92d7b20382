// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Campaign, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid campaign UUID: %w", err)
	}

	filter := models.CampaignFilter{UUID: &parsed}
	campaigns, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find campaign by UUID: %w", err)
	}

	if len(campaigns) == 0 {
		return nil, nil
	}

	return campaigns[0], nil
}

// ByIDWithRelations retrieves a campaign with its message and recipients preloaded
func (r *CampaignRepositoryImpl) ByIDWithRelations(ctx context.Context, id uint) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Preload("Message").
		Preload("Recipients").
		Last(&campaign, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign with relations: %w", err)
	}

	return &campaign, nil
}

// ListByCustomer retrieves a customer's campaigns with pagination, newest first
func (r *CampaignRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	err := db.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("Message").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns by customer: %w", err)
	}

	return campaigns, nil
}

// ListEligible selects dispatch candidates from stored fields only. The cached
// derived status is never consulted here; eligibility is decided against the
// database at the instant of the query.
func (r *CampaignRepositoryImpl) ListEligible(ctx context.Context, now time.Time, force bool) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	query := db.Where("is_active = ?", true)
	if !force {
		query = query.Where("start_time <= ? AND end_time >= ?", now, now)
	}

	var campaigns []*models.Campaign
	err := query.Order("id ASC").
		Preload("Message").
		Preload("Recipients").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible campaigns: %w", err)
	}

	return campaigns, nil
}

// Update persists changes to an existing campaign
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Omit("Recipients").Save(campaign).Error
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	return nil
}

// ReplaceRecipients swaps the campaign's recipient set for the given one
func (r *CampaignRepositoryImpl) ReplaceRecipients(ctx context.Context, campaign *models.Campaign, recipients []models.Recipient) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(campaign).Association("Recipients").Replace(recipients)
	if err != nil {
		return fmt.Errorf("failed to replace campaign recipients: %w", err)
	}

	return nil
}

// Delete removes a campaign together with its membership rows and delivery
// attempts
func (r *CampaignRepositoryImpl) Delete(ctx context.Context, campaignID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Exec("DELETE FROM campaign_recipients WHERE campaign_id = ?", campaignID).Error
	if err != nil {
		return fmt.Errorf("failed to remove campaign recipients: %w", err)
	}

	err = db.Where("campaign_id = ?", campaignID).Delete(&models.DeliveryAttempt{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete campaign attempts: %w", err)
	}

	err = db.Delete(&models.Campaign{}, campaignID).Error
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}

	return nil
}

// CountByMessage counts campaigns still referencing a message
func (r *CampaignRepositoryImpl) CountByMessage(ctx context.Context, messageID uint) (int64, error) {
	return r.Count(ctx, models.CampaignFilter{MessageID: &messageID})
}

func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, f models.CampaignFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.MessageID != nil {
		db = db.Where("message_id = ?", *f.MessageID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.StartAfter != nil {
		db = db.Where("start_time >= ?", *f.StartAfter)
	}
	if f.StartBefore != nil {
		db = db.Where("start_time < ?", *f.StartBefore)
	}
	if f.EndAfter != nil {
		db = db.Where("end_time >= ?", *f.EndAfter)
	}
	if f.EndBefore != nil {
		db = db.Where("end_time < ?", *f.EndBefore)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Campaign
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CampaignRepositoryImpl) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
