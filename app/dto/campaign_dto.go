package dto

import (
	"time"
)

// CreateCampaignRequest represents the payload for creating a campaign
type CreateCampaignRequest struct {
	CustomerID   uint      `json:"-"`
	StartTime    time.Time `json:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	MessageID    uint      `json:"message_id" validate:"required"`
	RecipientIDs []uint    `json:"recipient_ids" validate:"omitempty,dive,min=1"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// UpdateCampaignRequest represents the payload for editing a campaign. Nil
// fields are left unchanged.
type UpdateCampaignRequest struct {
	CustomerID   uint       `json:"-"`
	CampaignID   uint       `json:"-"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	MessageID    *uint      `json:"message_id,omitempty"`
	RecipientIDs *[]uint    `json:"recipient_ids,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
}

// ListCampaignsRequest represents campaign listing parameters
type ListCampaignsRequest struct {
	CustomerID uint  `json:"-"`
	Page       int   `json:"page" validate:"omitempty,min=1"`
	PageSize   int   `json:"page_size" validate:"omitempty,min=1,max=100"`
	IsActive   *bool `json:"is_active,omitempty"`
}

// ListCampaignsResponse represents a page of campaigns
type ListCampaignsResponse struct {
	Campaigns []CampaignDTO `json:"campaigns"`
	Page      int           `json:"page"`
	PageSize  int           `json:"page_size"`
	Total     int64         `json:"total"`
}

// CampaignDTO represents campaign data for API responses. Status is always
// derived at response time, never persisted.
type CampaignDTO struct {
	ID         uint           `json:"id"`
	UUID       string         `json:"uuid"`
	StartTime  string         `json:"start_time"`
	EndTime    string         `json:"end_time"`
	IsActive   *bool          `json:"is_active"`
	MessageID  uint           `json:"message_id"`
	CustomerID *uint          `json:"customer_id,omitempty"`
	Status     string         `json:"status" example:"started"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  *string        `json:"updated_at,omitempty"`
	Message    *MessageDTO    `json:"message,omitempty"`
	Recipients []RecipientDTO `json:"recipients,omitempty"`
}

// CampaignStatusResponse represents the cached status endpoint payload
type CampaignStatusResponse struct {
	CampaignID uint   `json:"campaign_id"`
	Status     string `json:"status"`
	Cached     bool   `json:"cached"`
}

// SendCampaignRequest represents a manual dispatch request
type SendCampaignRequest struct {
	CustomerID uint `json:"-"`
	CampaignID uint `json:"-"`
	Force      bool `json:"force"`
	DryRun     bool `json:"dry_run"`
}

// ListDeliveryAttemptsRequest represents attempt listing parameters
type ListDeliveryAttemptsRequest struct {
	CustomerID uint `json:"-"`
	CampaignID uint `json:"-"`
	Page       int  `json:"page" validate:"omitempty,min=1"`
	PageSize   int  `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListDeliveryAttemptsResponse represents a page of delivery attempts
type ListDeliveryAttemptsResponse struct {
	CampaignID uint                 `json:"campaign_id"`
	Attempts   []DeliveryAttemptDTO `json:"attempts"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	Total      int64                `json:"total"`
}

// DeliveryAttemptDTO represents one delivery attempt record
type DeliveryAttemptDTO struct {
	ID             uint   `json:"id"`
	CampaignID     uint   `json:"campaign_id"`
	RecipientID    uint   `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email"`
	DispatchRunID  *uint  `json:"dispatch_run_id,omitempty"`
	Status         string `json:"status" example:"success"`
	Response       string `json:"response"`
	AttemptedAt    string `json:"attempted_at"`
}
