package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/amirphl/Yatagarasu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignStatus represents the derived status of a campaign
type CampaignStatus string

const (
	CampaignStatusCreated   CampaignStatus = "created"
	CampaignStatusStarted   CampaignStatus = "started"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusCreated, CampaignStatusStarted, CampaignStatusCompleted:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// ResolveCampaignStatus derives a campaign's status from its stored fields at
// the given instant. The status is never persisted; every reader derives it.
//
//  1. before the window: created
//  2. inside the window (boundaries inclusive) and active: started
//  3. otherwise: completed
//
// An inactive campaign inside its window is completed, never created.
func ResolveCampaignStatus(now, startTime, endTime time.Time, isActive bool) CampaignStatus {
	if now.Before(startTime) {
		return CampaignStatusCreated
	}
	if !now.After(endTime) && isActive {
		return CampaignStatusStarted
	}
	return CampaignStatusCompleted
}

// Campaign schedules delivery of one message to a set of recipients inside a
// time window
type Campaign struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	StartTime time.Time `gorm:"not null;index:idx_campaigns_start_time" json:"start_time"`
	EndTime   time.Time `gorm:"not null;index:idx_campaigns_end_time" json:"end_time"`
	IsActive  *bool     `gorm:"default:true;index:idx_campaigns_is_active" json:"is_active"`

	MessageID uint     `gorm:"not null;index:idx_campaigns_message_id" json:"message_id"`
	Message   *Message `gorm:"foreignKey:MessageID;references:ID" json:"message,omitempty"`

	CustomerID *uint     `gorm:"index:idx_campaigns_customer_id" json:"customer_id,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`

	Recipients []Recipient `gorm:"many2many:campaign_recipients" json:"recipients,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"index:idx_campaigns_updated_at" json:"updated_at,omitempty"`

	// Relations
	Attempts     []DeliveryAttempt `gorm:"foreignKey:CampaignID" json:"-"`
	DispatchRuns []DispatchRun     `gorm:"foreignKey:CampaignID" json:"-"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.IsActive == nil {
		c.IsActive = utils.ToPtr(true)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// StatusAt resolves the campaign's status at the given instant
func (c *Campaign) StatusAt(now time.Time) CampaignStatus {
	return ResolveCampaignStatus(now, c.StartTime, c.EndTime, utils.IsTrue(c.IsActive))
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName(now time.Time) string {
	switch c.StatusAt(now) {
	case CampaignStatusCreated:
		return "Created"
	case CampaignStatusStarted:
		return "Started"
	case CampaignStatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// CampaignFilter represents filter criteria for campaign queries
type CampaignFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	CustomerID    *uint
	MessageID     *uint
	IsActive      *bool
	StartAfter    *time.Time
	StartBefore   *time.Time
	EndAfter      *time.Time
	EndBefore     *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
