package dto

import "time"

// ProfileDTO represents the customer's own profile
type ProfileDTO struct {
	ID              uint       `json:"id"`
	UUID            string     `json:"uuid"`
	FirstName       string     `json:"first_name"`
	LastName        string     `json:"last_name"`
	Email           string     `json:"email"`
	AvatarPath      *string    `json:"avatar_path,omitempty"`
	IsEmailVerified *bool      `json:"is_email_verified"`
	IsActive        *bool      `json:"is_active"`
	IsManager       *bool      `json:"is_manager"`
	CreatedAt       time.Time  `json:"created_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// GetProfileResponse wraps the profile payload
type GetProfileResponse struct {
	Profile ProfileDTO `json:"profile"`
}

// UpdateProfileRequest represents editable profile fields
type UpdateProfileRequest struct {
	CustomerID uint    `json:"-"`
	FirstName  *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName   *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
}
