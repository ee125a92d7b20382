// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ListCustomersRequest represents manager customer listing parameters
type ListCustomersRequest struct {
	CustomerID uint    `json:"-"`
	Page       int     `json:"page" validate:"omitempty,min=1"`
	PageSize   int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	IsBlocked  *bool   `json:"is_blocked,omitempty"`
}

// ListCustomersResponse represents a page of customer accounts
type ListCustomersResponse struct {
	Customers []AuthCustomerDTO `json:"customers"`
	Page      int               `json:"page"`
	PageSize  int               `json:"page_size"`
	Total     int64             `json:"total"`
}

// SetCustomerBlockedRequest represents a block or unblock action
type SetCustomerBlockedRequest struct {
	CustomerID       uint `json:"-"`
	TargetCustomerID uint `json:"-"`
	Blocked          bool `json:"blocked"`
}
