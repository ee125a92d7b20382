// Package models contains domain entities and business models for the mailing platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid;index:idx_customers_uuid" json:"uuid"`

	FirstName string `gorm:"size:150;not null" json:"first_name"`
	LastName  string `gorm:"size:150;not null" json:"last_name"`

	// Email is the login identifier
	Email        string  `gorm:"size:255;not null;uniqueIndex:idx_customers_email" json:"email"`
	PasswordHash string  `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	AvatarPath   *string `gorm:"size:255" json:"avatar_path,omitempty"`

	// Status and verification
	IsEmailVerified *bool `gorm:"default:false" json:"is_email_verified"`
	IsActive        *bool `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`
	IsBlocked       *bool `gorm:"default:false;index:idx_customers_is_blocked" json:"is_blocked"`
	IsManager       *bool `gorm:"default:false" json:"is_manager"`

	// Timestamps
	CreatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_customers_created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `gorm:"index:idx_customers_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	EmailVerifications []EmailVerification `gorm:"foreignKey:CustomerID" json:"-"`
	Sessions           []CustomerSession   `gorm:"foreignKey:CustomerID" json:"-"`
	AuditLogs          []AuditLog          `gorm:"foreignKey:CustomerID" json:"-"`
	Recipients         []Recipient         `gorm:"foreignKey:CustomerID" json:"-"`
	Messages           []Message           `gorm:"foreignKey:CustomerID" json:"-"`
	Campaigns          []Campaign          `gorm:"foreignKey:CustomerID" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}

// CustomerFilter represents filter criteria for customer queries
type CustomerFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	Email           *string
	IsEmailVerified *bool
	IsActive        *bool
	IsBlocked       *bool
	IsManager       *bool
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastLoginAfter  *time.Time
	LastLoginBefore *time.Time
}

// FullName returns the customer's display name
func (c *Customer) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CanLogin checks whether the account is allowed to authenticate
func (c *Customer) CanLogin() bool {
	if c.IsBlocked != nil && *c.IsBlocked {
		return false
	}
	return c.IsActive == nil || *c.IsActive
}
