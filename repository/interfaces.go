// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	ListCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error)
	Update(ctx context.Context, customer *models.Customer) error
	UpdatePassword(ctx context.Context, customerID uint, passwordHash string) error
	UpdateVerificationStatus(ctx context.Context, customerID uint, isEmailVerified *bool, emailVerifiedAt *time.Time) error
	UpdateLastLogin(ctx context.Context, customerID uint, lastLoginAt time.Time) error
	SetBlocked(ctx context.Context, customerID uint, blocked bool) error
}

// CustomerSessionRepository defines operations for customer sessions
type CustomerSessionRepository interface {
	Repository[models.CustomerSession, models.CustomerSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.CustomerSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.CustomerSession, error)
	ListActiveSessionsByCustomer(ctx context.Context, customerID uint) ([]*models.CustomerSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllCustomerSessions(ctx context.Context, customerID uint) error
	Touch(ctx context.Context, sessionID uint, accessedAt time.Time) error
}

// EmailVerificationRepository defines operations for emailed verification tokens
type EmailVerificationRepository interface {
	Repository[models.EmailVerification, models.EmailVerificationFilter]
	ByToken(ctx context.Context, token string) (*models.EmailVerification, error)
	MarkUsed(ctx context.Context, verificationID uint, usedAt time.Time) error
	ExpireOldTokens(ctx context.Context, customerID uint, verificationType string) error
	GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.EmailVerification, error)
}

// RecipientRepository defines operations for the recipient directory
type RecipientRepository interface {
	Repository[models.Recipient, models.RecipientFilter]
	ByEmail(ctx context.Context, email string) (*models.Recipient, error)
	ByUUID(ctx context.Context, uuid string) (*models.Recipient, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Recipient, error)
	Update(ctx context.Context, recipient *models.Recipient) error
	Delete(ctx context.Context, recipientID uint) error
}

// MessageRepository defines operations for reusable messages
type MessageRepository interface {
	Repository[models.Message, models.MessageFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Message, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Message, error)
	Update(ctx context.Context, message *models.Message) error
	Delete(ctx context.Context, messageID uint) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByIDWithRelations(ctx context.Context, id uint) (*models.Campaign, error)
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error)
	// ListEligible selects dispatch candidates from stored fields, never from
	// any cached status. force drops the window condition and keeps only
	// is_active. Message and Recipients come preloaded.
	ListEligible(ctx context.Context, now time.Time, force bool) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	ReplaceRecipients(ctx context.Context, campaign *models.Campaign, recipients []models.Recipient) error
	Delete(ctx context.Context, campaignID uint) error
	CountByMessage(ctx context.Context, messageID uint) (int64, error)
}

// DeliveryAttemptRepository defines operations for delivery attempt records.
// Attempts are append-only; there is deliberately no update or delete here.
type DeliveryAttemptRepository interface {
	Repository[models.DeliveryAttempt, models.DeliveryAttemptFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.DeliveryAttempt, error)
	CountByCampaignAndStatus(ctx context.Context, campaignID uint, status models.DeliveryAttemptStatus) (int64, error)
	CountByCustomerAndStatus(ctx context.Context, customerID uint, status models.DeliveryAttemptStatus) (int64, error)
}

// DispatchRunRepository defines operations for dispatch run bookkeeping
type DispatchRunRepository interface {
	Repository[models.DispatchRun, models.DispatchRunFilter]
	ByCampaignID(ctx context.Context, campaignID uint) (*models.DispatchRun, error)
	Update(ctx context.Context, run *models.DispatchRun) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ListSecurityEvents(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
