package models

import (
	"time"

	"github.com/lib/pq"
)

// DispatchSource identifies what triggered a dispatch run
type DispatchSource string

const (
	DispatchSourceAPI       DispatchSource = "api"
	DispatchSourceScheduler DispatchSource = "scheduler"
	DispatchSourceCLI       DispatchSource = "cli"
)

// DispatchRun records one real (non-dry-run) dispatch of one campaign with the
// recipient IDs visited and the outcome counters. Dry runs write no row.
// Array columns use PostgreSQL bigint[]
type DispatchRun struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CampaignID   uint           `gorm:"not null;index:idx_dispatch_runs_campaign_id" json:"campaign_id"`
	RecipientIDs pq.Int64Array  `gorm:"type:bigint[];not null" json:"recipient_ids"`
	TotalCount   int            `gorm:"not null;default:0" json:"total_count"`
	SuccessCount int            `gorm:"not null;default:0" json:"success_count"`
	FailedCount  int            `gorm:"not null;default:0" json:"failed_count"`
	Forced       *bool          `gorm:"default:false" json:"forced"`
	Source       DispatchSource `gorm:"size:20;not null;index:idx_dispatch_runs_source" json:"source"`
	StartedAt    time.Time      `gorm:"not null;index:idx_dispatch_runs_started_at" json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Campaign *Campaign         `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Attempts []DeliveryAttempt `gorm:"foreignKey:DispatchRunID" json:"-"`
}

func (DispatchRun) TableName() string { return "dispatch_runs" }

// DispatchRunFilter provides filter fields for repository queries
type DispatchRunFilter struct {
	ID            *uint
	CampaignID    *uint
	Source        *DispatchSource
	Forced        *bool
	StartedAfter  *time.Time
	StartedBefore *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
