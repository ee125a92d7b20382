// Package models contains domain entities and business models for the mailing platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type EmailVerification struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CorrelationID uuid.UUID  `gorm:"type:uuid;not null;index:idx_email_verifications_correlation_id" json:"correlation_id"` // Groups related verification records
	CustomerID    uint       `gorm:"not null;index:idx_email_verifications_customer_id" json:"customer_id"`
	Customer      Customer   `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Token         string     `gorm:"size:64;not null;uniqueIndex:idx_email_verifications_token" json:"-"` // Never serialize token
	Type          string     `gorm:"type:email_verification_type_enum;not null;index:idx_email_verifications_type_status" json:"type"`
	Status        string     `gorm:"type:email_verification_status_enum;default:pending;index:idx_email_verifications_type_status" json:"status"`
	CreatedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP;index:idx_email_verifications_created_at" json:"created_at"`
	ExpiresAt     time.Time  `gorm:"not null;index:idx_email_verifications_expires_at" json:"expires_at"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	IPAddress     *string    `gorm:"type:inet" json:"ip_address,omitempty"`
	UserAgent     *string    `gorm:"type:text" json:"user_agent,omitempty"`
}

func (EmailVerification) TableName() string {
	return "email_verifications"
}

// Verification type constants
const (
	EmailVerificationTypeSignup        = "signup"
	EmailVerificationTypePasswordReset = "password_reset"
)

// Verification status constants
const (
	EmailVerificationStatusPending = "pending"
	EmailVerificationStatusUsed    = "used"
	EmailVerificationStatusExpired = "expired"
)

// EmailVerificationFilter represents filter criteria for verification queries
type EmailVerificationFilter struct {
	ID            *uint
	CorrelationID *uuid.UUID
	CustomerID    *uint
	Token         *string
	Type          *string
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ExpiresAfter  *time.Time
	ExpiresBefore *time.Time
	IsActive      *bool // Helper to filter non-expired pending tokens
}

func (v *EmailVerification) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

func (v *EmailVerification) IsPending() bool {
	return v.Status == EmailVerificationStatusPending
}

func (v *EmailVerification) IsUsable() bool {
	return v.IsPending() && !v.IsExpired()
}
