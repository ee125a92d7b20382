// Package dto contains Data Transfer Objects for API request and response structures
package dto

// CreateMessageRequest represents the payload for adding a message template
type CreateMessageRequest struct {
	CustomerID uint   `json:"-"`
	Subject    string `json:"subject" validate:"required,max=255"`
	Body       string `json:"body" validate:"required"`
}

// UpdateMessageRequest represents the payload for editing a message template
type UpdateMessageRequest struct {
	CustomerID uint   `json:"-"`
	MessageID  uint   `json:"-"`
	Subject    string `json:"subject" validate:"required,max=255"`
	Body       string `json:"body" validate:"required"`
}

// ListMessagesRequest represents message listing parameters
type ListMessagesRequest struct {
	CustomerID uint `json:"-"`
	Page       int  `json:"page" validate:"omitempty,min=1"`
	PageSize   int  `json:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListMessagesResponse represents a page of message templates
type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int64        `json:"total"`
}

// MessageDTO represents message data for API responses
type MessageDTO struct {
	ID         uint   `json:"id"`
	UUID       string `json:"uuid"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	CustomerID *uint  `json:"customer_id,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}
