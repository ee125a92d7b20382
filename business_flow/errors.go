// Package businessflow contains the core business logic and use cases for the mailing platform
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrEmailNotVerified   = errors.New("email is not verified")

	// Verification token errors
	ErrNoValidTokenFound = errors.New("no valid verification token found")
	ErrTokenExpired      = errors.New("verification token has expired")
	ErrTokenAlreadyUsed  = errors.New("verification token has already been used")
	ErrAlreadyVerified   = errors.New("already verified")
	ErrCacheNotAvailable = errors.New("cache not available")

	// Recipient-related errors
	ErrRecipientNotFound           = errors.New("recipient not found")
	ErrRecipientEmailAlreadyExists = errors.New("recipient email already exists")
	ErrRecipientEmailRequired      = errors.New("recipient email is required")
	ErrRecipientFullNameRequired   = errors.New("recipient full name is required")

	// Message-related errors
	ErrMessageNotFound        = errors.New("message not found")
	ErrMessageSubjectRequired = errors.New("message subject is required")
	ErrMessageBodyRequired    = errors.New("message body is required")
	ErrMessageInUse           = errors.New("message is referenced by campaigns")

	// Campaign validation errors
	ErrCampaignNotFound       = errors.New("campaign not found")
	ErrCampaignStartAfterEnd  = errors.New("campaign start time must be before end time")
	ErrCampaignStartInPast    = errors.New("campaign start time cannot be in the past")
	ErrCampaignUpdateRequired = errors.New("at least one field must be provided for update")

	// Dispatch precondition errors
	ErrCampaignNotStarted     = errors.New("campaign is not in started status")
	ErrCampaignWithoutMessage = errors.New("campaign has no message")
	ErrCampaignNoRecipients   = errors.New("campaign has no recipients")

	// Batch selection errors
	ErrOwnerNotFound = errors.New("owner not found")

	// Authorization errors
	ErrAccessDenied    = errors.New("access denied")
	ErrSelfBlockDenied = errors.New("blocking your own account is not allowed")
	ErrManagerRequired = errors.New("manager privileges required")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsAccountBlocked(err error) bool {
	return errors.Is(err, ErrAccountBlocked)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsEmailNotVerified(err error) bool {
	return errors.Is(err, ErrEmailNotVerified)
}

func IsNoValidTokenFound(err error) bool {
	return errors.Is(err, ErrNoValidTokenFound)
}

func IsTokenExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

func IsTokenAlreadyUsed(err error) bool {
	return errors.Is(err, ErrTokenAlreadyUsed)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsCacheNotAvailable(err error) bool {
	return errors.Is(err, ErrCacheNotAvailable)
}

func IsRecipientNotFound(err error) bool {
	return errors.Is(err, ErrRecipientNotFound)
}

func IsRecipientEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrRecipientEmailAlreadyExists)
}

func IsRecipientEmailRequired(err error) bool {
	return errors.Is(err, ErrRecipientEmailRequired)
}

func IsRecipientFullNameRequired(err error) bool {
	return errors.Is(err, ErrRecipientFullNameRequired)
}

func IsMessageNotFound(err error) bool {
	return errors.Is(err, ErrMessageNotFound)
}

func IsMessageSubjectRequired(err error) bool {
	return errors.Is(err, ErrMessageSubjectRequired)
}

func IsMessageBodyRequired(err error) bool {
	return errors.Is(err, ErrMessageBodyRequired)
}

func IsMessageInUse(err error) bool {
	return errors.Is(err, ErrMessageInUse)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignStartAfterEnd(err error) bool {
	return errors.Is(err, ErrCampaignStartAfterEnd)
}

func IsCampaignStartInPast(err error) bool {
	return errors.Is(err, ErrCampaignStartInPast)
}

func IsCampaignUpdateRequired(err error) bool {
	return errors.Is(err, ErrCampaignUpdateRequired)
}

func IsCampaignNotStarted(err error) bool {
	return errors.Is(err, ErrCampaignNotStarted)
}

func IsCampaignWithoutMessage(err error) bool {
	return errors.Is(err, ErrCampaignWithoutMessage)
}

func IsCampaignNoRecipients(err error) bool {
	return errors.Is(err, ErrCampaignNoRecipients)
}

func IsOwnerNotFound(err error) bool {
	return errors.Is(err, ErrOwnerNotFound)
}

func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

func IsSelfBlockDenied(err error) bool {
	return errors.Is(err, ErrSelfBlockDenied)
}

func IsManagerRequired(err error) bool {
	return errors.Is(err, ErrManagerRequired)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
