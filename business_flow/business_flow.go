// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	DeviceInfo map[string]string `json:"device_info,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		DeviceInfo: make(map[string]string),
		Additional: make(map[string]string),
	}
}

// AddDeviceInfo adds device information to the metadata
func (cm *ClientMetadata) AddDeviceInfo(key, value string) {
	if cm.DeviceInfo == nil {
		cm.DeviceInfo = make(map[string]string)
	}
	cm.DeviceInfo[key] = value
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAuthCustomerDTO converts a customer model to AuthCustomerDTO for authentication responses
func ToAuthCustomerDTO(customer models.Customer) dto.AuthCustomerDTO {
	return dto.AuthCustomerDTO{
		ID:              customer.ID,
		UUID:            customer.UUID.String(),
		Email:           customer.Email,
		FirstName:       customer.FirstName,
		LastName:        customer.LastName,
		AvatarPath:      customer.AvatarPath,
		IsActive:        customer.IsActive,
		IsEmailVerified: customer.IsEmailVerified,
		IsManager:       customer.IsManager,
		CreatedAt:       customer.CreatedAt.Format(time.RFC3339),
	}
}

func ToCustomerSessionDTO(session models.CustomerSession) dto.CustomerSessionDTO {
	return dto.CustomerSessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}

// ToRecipientDTO converts a recipient model to its transport representation
func ToRecipientDTO(recipient models.Recipient) dto.RecipientDTO {
	return dto.RecipientDTO{
		ID:         recipient.ID,
		UUID:       recipient.UUID.String(),
		Email:      recipient.Email,
		FullName:   recipient.FullName,
		Comment:    recipient.Comment,
		CustomerID: recipient.CustomerID,
		CreatedAt:  recipient.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  recipient.UpdatedAt.Format(time.RFC3339),
	}
}

// ToMessageDTO converts a message model to its transport representation
func ToMessageDTO(message models.Message) dto.MessageDTO {
	return dto.MessageDTO{
		ID:         message.ID,
		UUID:       message.UUID.String(),
		Subject:    message.Subject,
		Body:       message.Body,
		CustomerID: message.CustomerID,
		CreatedAt:  message.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  message.UpdatedAt.Format(time.RFC3339),
	}
}

// ToCampaignDTO converts a campaign model to its transport representation. The
// status field is derived at the given instant, never read from storage.
func ToCampaignDTO(campaign models.Campaign, now time.Time) dto.CampaignDTO {
	d := dto.CampaignDTO{
		ID:         campaign.ID,
		UUID:       campaign.UUID.String(),
		StartTime:  campaign.StartTime.Format(time.RFC3339),
		EndTime:    campaign.EndTime.Format(time.RFC3339),
		IsActive:   campaign.IsActive,
		MessageID:  campaign.MessageID,
		CustomerID: campaign.CustomerID,
		Status:     campaign.StatusAt(now).String(),
		CreatedAt:  campaign.CreatedAt.Format(time.RFC3339),
	}
	if campaign.UpdatedAt != nil {
		updatedAt := campaign.UpdatedAt.Format(time.RFC3339)
		d.UpdatedAt = &updatedAt
	}
	if campaign.Message != nil {
		msg := ToMessageDTO(*campaign.Message)
		d.Message = &msg
	}
	for _, recipient := range campaign.Recipients {
		d.Recipients = append(d.Recipients, ToRecipientDTO(recipient))
	}
	return d
}

// ToDeliveryAttemptDTO converts an attempt record to its transport representation
func ToDeliveryAttemptDTO(attempt models.DeliveryAttempt) dto.DeliveryAttemptDTO {
	return dto.DeliveryAttemptDTO{
		ID:             attempt.ID,
		CampaignID:     attempt.CampaignID,
		RecipientID:    attempt.RecipientID,
		RecipientEmail: attempt.RecipientEmail,
		DispatchRunID:  attempt.DispatchRunID,
		Status:         attempt.Status.String(),
		Response:       attempt.Response,
		AttemptedAt:    attempt.AttemptedAt.Format(time.RFC3339),
	}
}
