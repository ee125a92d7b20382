// Package dto contains Data Transfer Objects for API request and response structures
package dto

// SignupRequest represents the signup form data
type SignupRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`

	// Captcha challenge solution
	CaptchaID    string  `json:"captcha_id,omitempty" validate:"omitempty"`
	CaptchaAngle float64 `json:"captcha_angle,omitempty" validate:"omitempty"`
}

// SignupResponse represents the response after successful signup initiation
type SignupResponse struct {
	Message            string `json:"message"`
	CustomerID         uint   `json:"customer_id"`
	VerificationSent   bool   `json:"verification_sent"`
	VerificationTarget string `json:"verification_target"` // Email address (masked)
}

// EmailVerificationRequest represents the email verification request
type EmailVerificationRequest struct {
	CustomerID uint   `json:"customer_id" validate:"required"`
	Token      string `json:"token" validate:"required,len=64,hexadecimal"`
}

// EmailVerificationResponse represents the response after successful verification
type EmailVerificationResponse struct {
	Message      string          `json:"message"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refresh_token"`
	Customer     AuthCustomerDTO `json:"customer"`
}

// VerificationResendRequest represents a request for a fresh verification token
type VerificationResendRequest struct {
	CustomerID uint `json:"customer_id" validate:"required"`
}

// VerificationResendResponse represents the resend outcome
type VerificationResendResponse struct {
	Message            string `json:"message"`
	VerificationSent   bool   `json:"verification_sent"`
	VerificationTarget string `json:"verification_target"`
}

// AuthCustomerDTO represents customer data for authentication responses
type AuthCustomerDTO struct {
	ID              uint    `json:"id"`
	UUID            string  `json:"uuid"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	AvatarPath      *string `json:"avatar_path,omitempty"`
	IsActive        *bool   `json:"is_active"`
	IsEmailVerified *bool   `json:"is_email_verified"`
	IsManager       *bool   `json:"is_manager"`
	CreatedAt       string  `json:"created_at"`
}
