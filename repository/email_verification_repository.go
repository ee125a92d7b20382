// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmailVerificationRepositoryImpl implements EmailVerificationRepository interface
type EmailVerificationRepositoryImpl struct {
	*BaseRepository[models.EmailVerification, models.EmailVerificationFilter]
}

// NewEmailVerificationRepository creates a new email verification repository
func NewEmailVerificationRepository(db *gorm.DB) EmailVerificationRepository {
	return &EmailVerificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.EmailVerification, models.EmailVerificationFilter](db),
	}
}

// ByToken retrieves a verification record by its token
func (r *EmailVerificationRepositoryImpl) ByToken(ctx context.Context, token string) (*models.EmailVerification, error) {
	db := r.getDB(ctx)

	var verification models.EmailVerification
	err := db.Where("token = ?", token).
		Preload("Customer").
		First(&verification).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find verification by token: %w", err)
	}

	return &verification, nil
}

// MarkUsed transitions a pending verification to used
func (r *EmailVerificationRepositoryImpl) MarkUsed(ctx context.Context, verificationID uint, usedAt time.Time) error {
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

	err = db.Model(&models.EmailVerification{}).
		Where("id = ?", verificationID).
		Updates(map[string]any{
			"status":  models.EmailVerificationStatusUsed,
			"used_at": usedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark verification used: %w", err)
	}

	return nil
}

// ExpireOldTokens invalidates all pending tokens of one type for a customer.
// Issuing a fresh token always expires its predecessors.
func (r *EmailVerificationRepositoryImpl) ExpireOldTokens(ctx context.Context, customerID uint, verificationType string) error {
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

	err = db.Model(&models.EmailVerification{}).
		Where("customer_id = ? AND type = ? AND status = ?",
			customerID, verificationType, models.EmailVerificationStatusPending).
		Update("status", models.EmailVerificationStatusExpired).Error
	if err != nil {
		return fmt.Errorf("failed to expire old tokens: %w", err)
	}

	return nil
}

// GetLatestByCorrelationID retrieves the most recent verification in a correlation group
func (r *EmailVerificationRepositoryImpl) GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.EmailVerification, error) {
	rows, err := r.ByFilter(ctx, models.EmailVerificationFilter{CorrelationID: &correlationID}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *EmailVerificationRepositoryImpl) applyFilter(db *gorm.DB, f models.EmailVerificationFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CorrelationID != nil {
		db = db.Where("correlation_id = ?", *f.CorrelationID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Token != nil {
		db = db.Where("token = ?", *f.Token)
	}
	if f.Type != nil {
		db = db.Where("type = ?", *f.Type)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	if f.ExpiresAfter != nil {
		db = db.Where("expires_at >= ?", *f.ExpiresAfter)
	}
	if f.ExpiresBefore != nil {
		db = db.Where("expires_at < ?", *f.ExpiresBefore)
	}
	if f.IsActive != nil && *f.IsActive {
		db = db.Where("status = ? AND expires_at > ?", models.EmailVerificationStatusPending, time.Now())
	}
	return db
}

func (r *EmailVerificationRepositoryImpl) ByFilter(ctx context.Context, filter models.EmailVerificationFilter, orderBy string, limit, offset int) ([]*models.EmailVerification, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailVerification{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.EmailVerification
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EmailVerificationRepositoryImpl) Count(ctx context.Context, filter models.EmailVerificationFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.EmailVerification{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *EmailVerificationRepositoryImpl) Exists(ctx context.Context, filter models.EmailVerificationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
