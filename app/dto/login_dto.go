// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"
)

// LoginRequest represents the request payload for customer login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Customer AuthCustomerDTO    `json:"customer"`
	Session  CustomerSessionDTO `json:"session"`
}

// CustomerSessionDTO represents session tokens for API responses
type CustomerSessionDTO struct {
	SessionToken string  `json:"session_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	ExpiresIn    int     `json:"expires_in"`
	TokenType    string  `json:"token_type" example:"Bearer"`
	CreatedAt    string  `json:"created_at"`
}

// LogoutResponse represents the logout outcome
type LogoutResponse struct {
	Message string `json:"message"`
}

// RefreshTokenRequest represents a session refresh request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
}

// ForgotPasswordResponse represents the response after requesting password reset
type ForgotPasswordResponse struct {
	CustomerID  uint      `json:"customer_id"`
	MaskedEmail string    `json:"masked_email" example:"us****@example.com"`
	TokenExpiry time.Time `json:"token_expiry"`
}

// ResetPasswordRequest represents the request to reset password with a token
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required,len=64,hexadecimal"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ResetPasswordResponse represents the response after successful password reset
type ResetPasswordResponse struct {
	Customer AuthCustomerDTO    `json:"customer"`
	Session  CustomerSessionDTO `json:"session"`
}

// Common error codes for authentication operations
const (
	ErrorCustomerNotFound  = "CUSTOMER_NOT_FOUND"
	ErrorIncorrectPassword = "INCORRECT_PASSWORD"
	ErrorAccountInactive   = "ACCOUNT_INACTIVE"
	ErrorAccountBlocked    = "ACCOUNT_BLOCKED"
	ErrorTokenExpired      = "TOKEN_EXPIRED"
	ErrorTokenAlreadyUsed  = "TOKEN_ALREADY_USED"
)
