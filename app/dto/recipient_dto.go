// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateRecipientRequest represents the payload for adding a recipient
type CreateRecipientRequest struct {
	CustomerID uint    `json:"-"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	FullName   string  `json:"full_name" validate:"required,max=255"`
	Comment    *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// UpdateRecipientRequest represents the payload for editing a recipient
type UpdateRecipientRequest struct {
	CustomerID  uint    `json:"-"`
	RecipientID uint    `json:"-"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	FullName    string  `json:"full_name" validate:"required,max=255"`
	Comment     *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// ListRecipientsRequest represents recipient listing parameters
type ListRecipientsRequest struct {
	CustomerID uint    `json:"-"`
	Page       int     `json:"page" validate:"omitempty,min=1"`
	PageSize   int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Search     *string `json:"search,omitempty" validate:"omitempty,max=255"`
}

// ListRecipientsResponse represents a page of recipients
type ListRecipientsResponse struct {
	Recipients []RecipientDTO `json:"recipients"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int64          `json:"total"`
}

// RecipientDTO represents recipient data for API responses
type RecipientDTO struct {
	ID         uint    `json:"id"`
	UUID       string  `json:"uuid"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Comment    *string `json:"comment,omitempty"`
	CustomerID *uint   `json:"customer_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}
