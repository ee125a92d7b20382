// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

// CustomerRepositoryImpl implements CustomerRepository interface
type CustomerRepositoryImpl struct {
	*BaseRepository[models.Customer, models.CustomerFilter]
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &CustomerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Customer, models.CustomerFilter](db),
	}
}

// ByEmail retrieves a customer by email address
func (r *CustomerRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	filter := models.CustomerFilter{Email: &email}
	customers, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}

	if len(customers) == 0 {
		return nil, nil
	}

	return customers[0], nil
}

// ByUUID retrieves a customer by UUID
func (r *CustomerRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Customer, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid customer UUID: %w", err)
	}

	filter := models.CustomerFilter{UUID: &parsed}
	customers, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by UUID: %w", err)
	}

	if len(customers) == 0 {
		return nil, nil
	}

	return customers[0], nil
}

// ListCustomers retrieves customers with pagination, newest first
func (r *CustomerRepositoryImpl) ListCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	return r.ByFilter(ctx, models.CustomerFilter{}, "created_at DESC", limit, offset)
}

// Update persists changes to an existing customer
func (r *CustomerRepositoryImpl) Update(ctx context.Context, customer *models.Customer) error {
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

	err = db.Save(customer).Error
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return nil
}

// UpdatePassword sets a new password hash for a customer
func (r *CustomerRepositoryImpl) UpdatePassword(ctx context.Context, customerID uint, passwordHash string) error {
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

	err = db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// UpdateVerificationStatus updates email verification flags for a customer
func (r *CustomerRepositoryImpl) UpdateVerificationStatus(ctx context.Context, customerID uint, isEmailVerified *bool, emailVerifiedAt *time.Time) error {
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

	updates := map[string]any{"updated_at": utils.UTCNow()}
	if isEmailVerified != nil {
		updates["is_email_verified"] = *isEmailVerified
	}
	if emailVerifiedAt != nil {
		updates["email_verified_at"] = *emailVerifiedAt
	}

	err = db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update verification status: %w", err)
	}

	return nil
}

// UpdateLastLogin records the latest successful login time
func (r *CustomerRepositoryImpl) UpdateLastLogin(ctx context.Context, customerID uint, lastLoginAt time.Time) error {
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

	err = db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("last_login_at", lastLoginAt).Error
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// SetBlocked toggles the blocked flag for a customer
func (r *CustomerRepositoryImpl) SetBlocked(ctx context.Context, customerID uint, blocked bool) error {
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

	err = db.Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"is_blocked": blocked,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to set blocked flag: %w", err)
	}

	return nil
}

func (r *CustomerRepositoryImpl) applyFilter(db *gorm.DB, f models.CustomerFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Email != nil {
		db = db.Where("email = ?", *f.Email)
	}
	if f.IsEmailVerified != nil {
		db = db.Where("is_email_verified = ?", *f.IsEmailVerified)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.IsBlocked != nil {
		db = db.Where("is_blocked = ?", *f.IsBlocked)
	}
	if f.IsManager != nil {
		db = db.Where("is_manager = ?", *f.IsManager)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	if f.LastLoginAfter != nil {
		db = db.Where("last_login_at >= ?", *f.LastLoginAfter)
	}
	if f.LastLoginBefore != nil {
		db = db.Where("last_login_at < ?", *f.LastLoginBefore)
	}
	return db
}

func (r *CustomerRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Customer{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.Customer
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CustomerRepositoryImpl) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Customer{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CustomerRepositoryImpl) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
