// Package models contains domain entities and business models for the mailing platform
package models

import (
	"time"

	"github.com/amirphl/Yatagarasu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipient is a directory entry campaigns deliver to. Email is unique across
// the whole directory, not per owner.
type Recipient struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_recipients_uuid" json:"uuid"`
	Email    string    `gorm:"size:255;not null;uniqueIndex:uk_recipients_email" json:"email"`
	FullName string    `gorm:"size:255;not null" json:"full_name"`
	Comment  *string   `gorm:"type:text" json:"comment,omitempty"`

	// CustomerID is nullable: deleting the owner orphans the recipient rather
	// than removing it from other owners' campaigns.
	CustomerID *uint     `gorm:"index:idx_recipients_customer_id" json:"customer_id,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_recipients_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Attempts []DeliveryAttempt `gorm:"foreignKey:RecipientID" json:"-"`
}

func (Recipient) TableName() string {
	return "recipients"
}

// BeforeCreate is called before creating a new record
func (r *Recipient) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *Recipient) BeforeUpdate(tx *gorm.DB) error {
	r.UpdatedAt = utils.UTCNow()
	return nil
}

// RecipientFilter represents filter criteria for recipient queries
type RecipientFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Email         *string
	FullName      *string
	CustomerID    *uint
	Search        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
