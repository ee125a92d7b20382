// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/models"
	"gorm.io/gorm"
)

// CustomerSessionRepositoryImpl implements CustomerSessionRepository interface
type CustomerSessionRepositoryImpl struct {
	*BaseRepository[models.CustomerSession, models.CustomerSessionFilter]
}

// NewCustomerSessionRepository creates a new customer session repository
func NewCustomerSessionRepository(db *gorm.DB) CustomerSessionRepository {
	return &CustomerSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CustomerSession, models.CustomerSessionFilter](db),
	}
}

// BySessionToken retrieves an active, unexpired session by session token
func (r *CustomerSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.CustomerSession, error) {
	db := r.getDB(ctx)

	var session models.CustomerSession
	err := db.Where("session_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("Customer").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ByRefreshToken retrieves an active, unexpired session by refresh token
func (r *CustomerSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.CustomerSession, error) {
	db := r.getDB(ctx)

	var session models.CustomerSession
	err := db.Where("refresh_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("Customer").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}

	return &session, nil
}

// ListActiveSessionsByCustomer retrieves all active sessions for a customer
func (r *CustomerSessionRepositoryImpl) ListActiveSessionsByCustomer(ctx context.Context, customerID uint) ([]*models.CustomerSession, error) {
	isActive := true
	filter := models.CustomerSessionFilter{
		CustomerID: &customerID,
		IsActive:   &isActive,
	}

	sessions, err := r.ByFilter(ctx, filter, "created_at DESC", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions by customer: %w", err)
	}

	// Filter out expired sessions
	var activeSessions []*models.CustomerSession
	now := time.Now()
	for _, session := range sessions {
		if session.ExpiresAt.After(now) {
			activeSessions = append(activeSessions, session)
		}
	}

	return activeSessions, nil
}

// ExpireSession deactivates a single session
func (r *CustomerSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) error {
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

	err = db.Model(&models.CustomerSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"is_active":  false,
			"expires_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}

	return nil
}

// ExpireAllCustomerSessions deactivates every active session for a customer
func (r *CustomerSessionRepositoryImpl) ExpireAllCustomerSessions(ctx context.Context, customerID uint) error {
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

	err = db.Model(&models.CustomerSession{}).
		Where("customer_id = ? AND is_active = ?", customerID, true).
		Updates(map[string]any{
			"is_active":  false,
			"expires_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to expire customer sessions: %w", err)
	}

	return nil
}

// Touch records the latest access time for a session
func (r *CustomerSessionRepositoryImpl) Touch(ctx context.Context, sessionID uint, accessedAt time.Time) error {
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

	err = db.Model(&models.CustomerSession{}).
		Where("id = ?", sessionID).
		Update("last_accessed_at", accessedAt).Error
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}

	return nil
}

func (r *CustomerSessionRepositoryImpl) applyFilter(db *gorm.DB, f models.CustomerSessionFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CorrelationID != nil {
		db = db.Where("correlation_id = ?", *f.CorrelationID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.IPAddress != nil {
		db = db.Where("ip_address = ?", *f.IPAddress)
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
	if f.AccessedAfter != nil {
		db = db.Where("last_accessed_at >= ?", *f.AccessedAfter)
	}
	if f.AccessedBefore != nil {
		db = db.Where("last_accessed_at < ?", *f.AccessedBefore)
	}
	if f.IsExpired != nil && *f.IsExpired {
		db = db.Where("expires_at <= ?", time.Now())
	}
	return db
}

func (r *CustomerSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.CustomerSessionFilter, orderBy string, limit, offset int) ([]*models.CustomerSession, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CustomerSession{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.CustomerSession
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CustomerSessionRepositoryImpl) Count(ctx context.Context, filter models.CustomerSessionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CustomerSession{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CustomerSessionRepositoryImpl) Exists(ctx context.Context, filter models.CustomerSessionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
