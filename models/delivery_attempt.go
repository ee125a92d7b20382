package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/utils"
	"gorm.io/gorm"
)

// DeliveryAttemptStatus enumerates the outcome of one delivery attempt
type DeliveryAttemptStatus string

const (
	DeliveryAttemptStatusSuccess DeliveryAttemptStatus = "success"
	DeliveryAttemptStatusFailed  DeliveryAttemptStatus = "failed"
)

// String returns the string representation of the status
func (s DeliveryAttemptStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DeliveryAttemptStatus) Valid() bool {
	switch s {
	case DeliveryAttemptStatusSuccess, DeliveryAttemptStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DeliveryAttemptStatus
func (s *DeliveryAttemptStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DeliveryAttemptStatus(v)
	case []byte:
		*s = DeliveryAttemptStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DeliveryAttemptStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DeliveryAttemptStatus
func (s DeliveryAttemptStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DeliveryAttemptStatus: %s", s)
	}
	return string(s), nil
}

// DeliveryAttempt records one delivery to one recipient during one dispatch.
// Rows are append-only: created by the dispatch engine, never mutated, and
// removed only by cascade from the campaign or the recipient.
type DeliveryAttempt struct {
	ID          uint `gorm:"primaryKey" json:"id"`
	CampaignID  uint `gorm:"not null;index:idx_delivery_attempts_campaign_id" json:"campaign_id"`
	RecipientID uint `gorm:"not null;index:idx_delivery_attempts_recipient_id" json:"recipient_id"`

	// RecipientEmail snapshots the address at send time; the recipient row may
	// change afterwards.
	RecipientEmail string                `gorm:"size:255;not null" json:"recipient_email"`
	DispatchRunID  *uint                 `gorm:"index:idx_delivery_attempts_dispatch_run_id" json:"dispatch_run_id,omitempty"`
	Status         DeliveryAttemptStatus `gorm:"type:delivery_attempt_status;not null;index:idx_delivery_attempts_status" json:"status"`
	Response       string                `gorm:"type:text;not null" json:"response"`
	AttemptedAt    time.Time             `gorm:"not null;index:idx_delivery_attempts_attempted_at" json:"attempted_at"`
	CreatedAt      time.Time             `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign  *Campaign  `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Recipient *Recipient `gorm:"foreignKey:RecipientID;references:ID" json:"recipient,omitempty"`
}

func (DeliveryAttempt) TableName() string {
	return "delivery_attempts"
}

// BeforeCreate is called before creating a new record
func (a *DeliveryAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.AttemptedAt.IsZero() {
		a.AttemptedAt = utils.UTCNow()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsSuccess reports whether the attempt delivered
func (a *DeliveryAttempt) IsSuccess() bool {
	return a.Status == DeliveryAttemptStatusSuccess
}

// DeliveryAttemptFilter represents filter criteria for attempt queries
type DeliveryAttemptFilter struct {
	ID              *uint
	CampaignID      *uint
	RecipientID     *uint
	DispatchRunID   *uint
	Status          *DeliveryAttemptStatus
	AttemptedAfter  *time.Time
	AttemptedBefore *time.Time
}
