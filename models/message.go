// Package models contains domain entities and business models for the mailing platform
package models

import (
	"time"

	"github.com/amirphl/Yatagarasu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is the reusable content a campaign delivers. Campaigns reference a
// message by ID without copying it, so edits apply to future sends.
type Message struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_messages_uuid" json:"uuid"`
	Subject string    `gorm:"size:255;not null" json:"subject"`
	Body    string    `gorm:"type:text;not null" json:"body"`

	CustomerID *uint     `gorm:"index:idx_messages_customer_id" json:"customer_id,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_messages_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Campaigns []Campaign `gorm:"foreignKey:MessageID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}

// BeforeCreate is called before creating a new record
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (m *Message) BeforeUpdate(tx *gorm.DB) error {
	m.UpdatedAt = utils.UTCNow()
	return nil
}

// MessageFilter represents filter criteria for message queries
type MessageFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Subject       *string
	CustomerID    *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
