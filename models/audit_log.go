// Package models contains domain entities and business models for the mailing platform
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CustomerID   *uint           `gorm:"index:idx_audit_customer_id" json:"customer_id,omitempty"`
	Customer     *Customer       `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Action       string          `gorm:"type:audit_action_enum;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb;index:idx_audit_metadata,type:gin" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionSignupInitiated        = "signup_initiated"
	AuditActionSignupCompleted        = "signup_completed"
	AuditActionEmailVerified          = "email_verified"
	AuditActionVerificationResent     = "verification_resent"
	AuditActionLoginSuccessful        = "login_successful"
	AuditActionLoginFailed            = "login_failed"
	AuditActionLogout                 = "logout"
	AuditActionPasswordResetRequested = "password_reset_requested"
	AuditActionPasswordResetCompleted = "password_reset_completed"
	AuditActionPasswordResetFailed    = "password_reset_failed"
	AuditActionProfileUpdated         = "profile_updated"
	AuditActionAvatarUploaded         = "avatar_uploaded"
	AuditActionSessionCreated         = "session_created"
	AuditActionSessionExpired         = "session_expired"

	AuditActionRecipientCreated = "recipient_created"
	AuditActionRecipientUpdated = "recipient_updated"
	AuditActionRecipientDeleted = "recipient_deleted"
	AuditActionMessageCreated   = "message_created"
	AuditActionMessageUpdated   = "message_updated"
	AuditActionMessageDeleted   = "message_deleted"
	AuditActionCampaignCreated  = "campaign_created"
	AuditActionCampaignUpdated  = "campaign_updated"
	AuditActionCampaignDeleted  = "campaign_deleted"
	AuditActionCampaignToggled  = "campaign_toggled"

	AuditActionCampaignDispatched = "campaign_dispatched"
	AuditActionCampaignSkipped    = "campaign_skipped"

	AuditActionCustomerBlocked   = "customer_blocked"
	AuditActionCustomerUnblocked = "customer_unblocked"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	CustomerID    *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	securityActions := map[string]bool{
		AuditActionLoginSuccessful:     true,
		AuditActionLoginFailed:         true,
		AuditActionPasswordResetFailed: true,
		AuditActionCustomerBlocked:     true,
		AuditActionCustomerUnblocked:   true,
	}
	return securityActions[a.Action]
}
