// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/app/services"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SignupFlow handles the complete signup business logic
type SignupFlow interface {
	Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error)
	VerifyEmail(ctx context.Context, req *dto.EmailVerificationRequest, metadata *ClientMetadata) (*dto.EmailVerificationResponse, error)
	ResendVerification(ctx context.Context, req *dto.VerificationResendRequest, metadata *ClientMetadata) (*dto.VerificationResendResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	customerRepo     repository.CustomerRepository
	verificationRepo repository.EmailVerificationRepository
	sessionRepo      repository.CustomerSessionRepository
	auditRepo        repository.AuditLogRepository
	tokenService     services.TokenService
	mailer           services.Mailer
	db               *gorm.DB
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	customerRepo repository.CustomerRepository,
	verificationRepo repository.EmailVerificationRepository,
	sessionRepo repository.CustomerSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	mailer services.Mailer,
	db *gorm.DB,
) SignupFlow {
	return &SignupFlowImpl{
		customerRepo:     customerRepo,
		verificationRepo: verificationRepo,
		sessionRepo:      sessionRepo,
		auditRepo:        auditRepo,
		tokenService:     tokenService,
		mailer:           mailer,
		db:               db,
	}
}

// Signup registers a new customer and issues an email verification token
func (s *SignupFlowImpl) Signup(ctx context.Context, req *dto.SignupRequest, metadata *ClientMetadata) (*dto.SignupResponse, error) {
	// Validate business rules
	if err := s.validateSignupRequest(ctx, req); err != nil {
		return nil, NewBusinessError("SIGNUP_VALIDATION_FAILED", "Signup validation failed", err)
	}

	// Use transaction for atomicity
	var customer *models.Customer
	var token string

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		customer, err = s.createCustomer(txCtx, req)
		if err != nil {
			return err
		}

		token, err = s.issueVerificationToken(txCtx, customer.ID, models.EmailVerificationTypeSignup, utils.SignupVerificationExpiry)
		if err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Signup initiation failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customer, models.AuditActionSignupInitiated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SIGNUP_FAILED", "Signup failed", err)
	} else {
		msg := fmt.Sprintf("Signup initiated successfully: %d", customer.ID)
		_ = s.createAuditLog(ctx, customer, models.AuditActionSignupInitiated, msg, true, nil, metadata)
	}

	// Send verification email outside the transaction so a mail failure
	// never rolls back the registration
	go func() {
		body := fmt.Sprintf("Welcome! Confirm your email address with this code: %s", token)
		_, err := s.mailer.Deliver(context.Background(), customer.Email, customer.FullName(), "Confirm your email", body)
		if err != nil {
			errMsg := fmt.Sprintf("Failed to send verification email: %v", err)
			_ = s.createAuditLog(context.Background(), customer, models.AuditActionVerificationResent, errMsg, false, &errMsg, metadata)
		}
	}()

	return &dto.SignupResponse{
		Message:            "Signup initiated successfully. Verification email sent.",
		CustomerID:         customer.ID,
		VerificationSent:   true,
		VerificationTarget: s.maskEmail(customer.Email),
	}, nil
}

// VerifyEmail consumes a pending verification token and completes signup
func (s *SignupFlowImpl) VerifyEmail(ctx context.Context, req *dto.EmailVerificationRequest, metadata *ClientMetadata) (*dto.EmailVerificationResponse, error) {
	// Validate business rules
	if err := s.validateVerificationRequest(ctx, req); err != nil {
		return nil, NewBusinessError("EMAIL_VERIFICATION_VALIDATION_FAILED", "Email verification validation failed", err)
	}

	var customer *models.Customer
	var tokens struct {
		access  string
		refresh string
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		customer, err = getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		if err := s.consumeToken(txCtx, req.CustomerID, req.Token, models.EmailVerificationTypeSignup); err != nil {
			return err
		}

		if err := s.customerRepo.UpdateVerificationStatus(txCtx, customer.ID, utils.ToPtr(true), utils.ToPtr(utils.UTCNow())); err != nil {
			return err
		}

		tokens.access, tokens.refresh, err = s.tokenService.GenerateTokens(customer.ID)
		if err != nil {
			return err
		}

		if err := s.createSession(txCtx, customer.ID, tokens.access, tokens.refresh, metadata); err != nil {
			return err
		}

		// Reload to pick up the updated verification fields
		customer, err = getCustomer(txCtx, s.customerRepo, customer.ID)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Email verification failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customer, models.AuditActionEmailVerified, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("EMAIL_VERIFICATION_FAILED", "Email verification failed", err)
	} else {
		msg := fmt.Sprintf("Signup completed successfully: %d", customer.ID)
		_ = s.createAuditLog(ctx, customer, models.AuditActionSignupCompleted, msg, true, nil, metadata)
	}

	return &dto.EmailVerificationResponse{
		Message:      "Signup completed successfully!",
		Token:        tokens.access,
		RefreshToken: tokens.refresh,
		Customer:     ToAuthCustomerDTO(*customer),
	}, nil
}

// ResendVerification expires outstanding tokens and issues a fresh one
func (s *SignupFlowImpl) ResendVerification(ctx context.Context, req *dto.VerificationResendRequest, metadata *ClientMetadata) (*dto.VerificationResendResponse, error) {
	var customer *models.Customer

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		customer, err = getCustomer(txCtx, s.customerRepo, req.CustomerID)
		if err != nil {
			return err
		}

		if utils.IsTrue(customer.IsEmailVerified) {
			return ErrAlreadyVerified
		}

		if err := s.verificationRepo.ExpireOldTokens(txCtx, req.CustomerID, models.EmailVerificationTypeSignup); err != nil {
			return err
		}

		token, err := s.issueVerificationToken(txCtx, req.CustomerID, models.EmailVerificationTypeSignup, utils.SignupVerificationExpiry)
		if err != nil {
			return err
		}

		body := fmt.Sprintf("Your new confirmation code is: %s. Valid for %s.", token, utils.SignupVerificationExpiry)
		_, err = s.mailer.Deliver(txCtx, customer.Email, customer.FullName(), "Confirm your email", body)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Resend verification failed: %s", err.Error())
		_ = s.createAuditLog(ctx, customer, models.AuditActionVerificationResent, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESEND_VERIFICATION_FAILED", "Resend verification failed", err)
	} else {
		msg := fmt.Sprintf("Verification email resent successfully: %d", req.CustomerID)
		_ = s.createAuditLog(ctx, customer, models.AuditActionVerificationResent, msg, true, nil, metadata)
	}

	return &dto.VerificationResendResponse{
		Message:            "Verification email resent successfully",
		VerificationSent:   true,
		VerificationTarget: s.maskEmail(customer.Email),
	}, nil
}

// Private helper methods

func (s *SignupFlowImpl) validateSignupRequest(ctx context.Context, req *dto.SignupRequest) error {
	// Check if email already exists
	existingCustomer, err := s.customerRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existingCustomer != nil {
		return ErrEmailAlreadyExists
	}

	return nil
}

func (s *SignupFlowImpl) createCustomer(ctx context.Context, req *dto.SignupRequest) (*models.Customer, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		UUID:            uuid.New(),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		PasswordHash:    string(hashedPassword),
		IsEmailVerified: utils.ToPtr(false),
		IsActive:        utils.ToPtr(true),
		IsBlocked:       utils.ToPtr(false),
		IsManager:       utils.ToPtr(false),
	}

	err = s.customerRepo.Save(ctx, customer)
	if err != nil {
		return nil, err
	}

	return customer, nil
}

func (s *SignupFlowImpl) issueVerificationToken(ctx context.Context, customerID uint, tokenType string, expiry time.Duration) (string, error) {
	token, err := utils.RandomToken(32)
	if err != nil {
		return "", err
	}

	verification := &models.EmailVerification{
		CorrelationID: uuid.New(),
		CustomerID:    customerID,
		Token:         token,
		Type:          tokenType,
		Status:        models.EmailVerificationStatusPending,
		ExpiresAt:     utils.UTCNow().Add(expiry),
	}

	if err := s.verificationRepo.Save(ctx, verification); err != nil {
		return "", err
	}

	return token, nil
}

func (s *SignupFlowImpl) consumeToken(ctx context.Context, customerID uint, token, tokenType string) error {
	verification, err := s.verificationRepo.ByToken(ctx, token)
	if err != nil {
		return err
	}
	if verification == nil || verification.CustomerID != customerID || verification.Type != tokenType {
		return ErrNoValidTokenFound
	}
	if verification.Status == models.EmailVerificationStatusUsed {
		return ErrTokenAlreadyUsed
	}
	if verification.IsExpired() {
		return ErrTokenExpired
	}

	return s.verificationRepo.MarkUsed(ctx, verification.ID, utils.UTCNow())
}

func (s *SignupFlowImpl) createSession(ctx context.Context, customerID uint, accessToken, refreshToken string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.CustomerSession{
		CorrelationID: uuid.New(),
		CustomerID:    customerID,
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		IsActive:      utils.ToPtr(true),
		ExpiresAt:     utils.UTCNow().Add(utils.SessionTimeout),
	}

	return s.sessionRepo.Save(ctx, session)
}

func (s *SignupFlowImpl) createAuditLog(ctx context.Context, customer *models.Customer, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var customerID *uint
	if customer != nil {
		customerID = &customer.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}

func (s *SignupFlowImpl) maskEmail(email string) string {
	at := -1
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at <= 2 {
		return email
	}
	// Show ab****@example.com format
	return email[:2] + "****" + email[at:]
}

func (s *SignupFlowImpl) validateVerificationRequest(ctx context.Context, req *dto.EmailVerificationRequest) error {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return err
	}

	if utils.IsTrue(customer.IsEmailVerified) {
		return ErrAlreadyVerified
	}

	return nil
}
