// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

// RecipientRepositoryImpl implements RecipientRepository interface
type RecipientRepositoryImpl struct {
	*BaseRepository[models.Recipient, models.RecipientFilter]
}

// NewRecipientRepository creates a new recipient repository
func NewRecipientRepository(db *gorm.DB) RecipientRepository {
	return &RecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Recipient, models.RecipientFilter](db),
	}
}

// ByEmail retrieves a recipient by email address
func (r *RecipientRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Recipient, error) {
	filter := models.RecipientFilter{Email: &email}
	recipients, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipient by email: %w", err)
	}

	if len(recipients) == 0 {
		return nil, nil
	}

	return recipients[0], nil
}

// ByUUID retrieves a recipient by UUID
func (r *RecipientRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Recipient, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient UUID: %w", err)
	}

	filter := models.RecipientFilter{UUID: &parsed}
	recipients, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipient by UUID: %w", err)
	}

	if len(recipients) == 0 {
		return nil, nil
	}

	return recipients[0], nil
}

// ListByCustomer retrieves a customer's recipients with pagination, newest first
func (r *RecipientRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Recipient, error) {
	filter := models.RecipientFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update persists changes to an existing recipient
func (r *RecipientRepositoryImpl) Update(ctx context.Context, recipient *models.Recipient) error {
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

	err = db.Save(recipient).Error
	if err != nil {
		return fmt.Errorf("failed to update recipient: %w", err)
	}

	return nil
}

// Delete removes a recipient. Delivery attempts referencing it go with it by
// cascade; campaign membership rows are removed here explicitly.
func (r *RecipientRepositoryImpl) Delete(ctx context.Context, recipientID uint) error {
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

	err = db.Exec("DELETE FROM campaign_recipients WHERE recipient_id = ?", recipientID).Error
	if err != nil {
		return fmt.Errorf("failed to remove recipient from campaigns: %w", err)
	}

	err = db.Delete(&models.Recipient{}, recipientID).Error
	if err != nil {
		return fmt.Errorf("failed to delete recipient: %w", err)
	}

	return nil
}

func (r *RecipientRepositoryImpl) applyFilter(db *gorm.DB, f models.RecipientFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Email != nil {
		db = db.Where("email = ?", *f.Email)
	}
	if f.FullName != nil {
		db = db.Where("full_name = ?", *f.FullName)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Search != nil && *f.Search != "" {
		pattern := "%" + *f.Search + "%"
		db = db.Where("email ILIKE ? OR full_name ILIKE ?", pattern, pattern)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *RecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.RecipientFilter, orderBy string, limit, offset int) ([]*models.Recipient, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Recipient{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Recipient
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *RecipientRepositoryImpl) Count(ctx context.Context, filter models.RecipientFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Recipient{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RecipientRepositoryImpl) Exists(ctx context.Context, filter models.RecipientFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
