// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/app/services"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginFlow handles the complete login business logic
type LoginFlow interface {
	Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
	RefreshSession(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	ForgotPassword(ctx context.Context, request *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, request *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	customerRepo     repository.CustomerRepository
	sessionRepo      repository.CustomerSessionRepository
	verificationRepo repository.EmailVerificationRepository
	auditRepo        repository.AuditLogRepository
	tokenService     services.TokenService
	mailer           services.Mailer
	db               *gorm.DB
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	customerRepo repository.CustomerRepository,
	sessionRepo repository.CustomerSessionRepository,
	verificationRepo repository.EmailVerificationRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	mailer services.Mailer,
	db *gorm.DB,
) LoginFlow {
	return &LoginFlowImpl{
		customerRepo:     customerRepo,
		sessionRepo:      sessionRepo,
		verificationRepo: verificationRepo,
		auditRepo:        auditRepo,
		tokenService:     tokenService,
		mailer:           mailer,
		db:               db,
	}
}

// Login authenticates a customer with email and password
func (lf *LoginFlowImpl) Login(ctx context.Context, request *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	// Validate business rules
	if err := lf.validateLoginRequest(request); err != nil {
		return nil, NewBusinessError("LOGIN_VALIDATION_FAILED", "Login validation failed", err)
	}

	var customer *models.Customer

	resp, err := lf.WithLoginTransaction(ctx, func(txCtx context.Context) (*dto.LoginResponse, error) {
		var err error
		customer, err = lf.customerRepo.ByEmail(txCtx, strings.TrimSpace(request.Email))
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, ErrCustomerNotFound
		}

		if utils.IsTrue(customer.IsBlocked) {
			return nil, ErrAccountBlocked
		}
		if !customer.CanLogin() {
			return nil, ErrAccountInactive
		}

		// Verify password
		if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(request.Password)); err != nil {
			return nil, ErrIncorrectPassword
		}

		// Create new session
		session, err := lf.CreateSession(txCtx, customer.ID, metadata)
		if err != nil {
			return nil, err
		}

		if err := lf.customerRepo.UpdateLastLogin(txCtx, customer.ID, utils.UTCNow()); err != nil {
			return nil, err
		}

		return &dto.LoginResponse{
			Customer: ToAuthCustomerDTO(*customer),
			Session:  ToCustomerSessionDTO(*session),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = lf.LogLoginAttempt(ctx, customer, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	} else {
		msg := fmt.Sprintf("Customer logged in successfully: %d", resp.Customer.ID)
		_ = lf.LogLoginAttempt(ctx, customer, models.AuditActionLoginSuccessful, msg, true, nil, metadata)
	}

	return resp, nil
}

// Logout expires the session identified by the presented token
func (lf *LoginFlowImpl) Logout(ctx context.Context, sessionToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	var customer *models.Customer

	err := repository.WithTransaction(ctx, lf.db, func(txCtx context.Context) error {
		session, err := lf.sessionRepo.BySessionToken(txCtx, sessionToken)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrCustomerNotFound
		}

		customer, err = getCustomer(txCtx, lf.customerRepo, session.CustomerID)
		if err != nil {
			return err
		}

		return lf.sessionRepo.ExpireSession(txCtx, session.ID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Logout failed: %s", err.Error())
		_ = lf.LogLoginAttempt(ctx, customer, models.AuditActionLogout, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	msg := fmt.Sprintf("Customer logged out: %d", customer.ID)
	_ = lf.LogLoginAttempt(ctx, customer, models.AuditActionLogout, msg, true, nil, metadata)

	return &dto.LogoutResponse{Message: "Logged out successfully"}, nil
}

// RefreshSession rotates a session using its refresh token
func (lf *LoginFlowImpl) RefreshSession(ctx context.Context, request *dto.RefreshTokenRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	var customer *models.Customer

	resp, err := lf.WithLoginTransaction(ctx, func(txCtx context.Context) (*dto.LoginResponse, error) {
		session, err := lf.sessionRepo.ByRefreshToken(txCtx, request.RefreshToken)
		if err != nil {
			return nil, err
		}
		if session == nil || !session.IsValid() {
			return nil, ErrNoValidTokenFound
		}

		customer, err = getCustomer(txCtx, lf.customerRepo, session.CustomerID)
		if err != nil {
			return nil, err
		}
		if utils.IsTrue(customer.IsBlocked) {
			return nil, ErrAccountBlocked
		}
		if !customer.CanLogin() {
			return nil, ErrAccountInactive
		}

		// Old session is replaced, never reusable
		if err := lf.sessionRepo.ExpireSession(txCtx, session.ID); err != nil {
			return nil, err
		}

		newSession, err := lf.CreateSession(txCtx, customer.ID, metadata)
		if err != nil {
			return nil, err
		}

		return &dto.LoginResponse{
			Customer: ToAuthCustomerDTO(*customer),
			Session:  ToCustomerSessionDTO(*newSession),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Session refresh failed: %s", err.Error())
		_ = lf.LogLoginAttempt(ctx, customer, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SESSION_REFRESH_FAILED", "Session refresh failed", err)
	}

	msg := fmt.Sprintf("Session refreshed: %d", resp.Customer.ID)
	_ = lf.LogLoginAttempt(ctx, customer, models.AuditActionSessionCreated, msg, true, nil, metadata)

	return resp, nil
}

// ForgotPassword initiates the password reset process via an emailed token
func (lf *LoginFlowImpl) ForgotPassword(ctx context.Context, request *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error) {
	var customer *models.Customer

	resp, err := lf.WithForgotPasswordTransaction(ctx, func(txCtx context.Context) (*dto.ForgotPasswordResponse, error) {
		var err error
		customer, err = lf.customerRepo.ByEmail(txCtx, strings.TrimSpace(request.Email))
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, ErrCustomerNotFound
		}

		if utils.IsTrue(customer.IsBlocked) {
			return nil, ErrAccountBlocked
		}
		if !customer.CanLogin() {
			return nil, ErrAccountInactive
		}

		// Expire any outstanding reset tokens before issuing a new one
		if err := lf.verificationRepo.ExpireOldTokens(txCtx, customer.ID, models.EmailVerificationTypePasswordReset); err != nil {
			return nil, err
		}

		token, err := utils.RandomToken(32)
		if err != nil {
			return nil, err
		}

		ipAddress := "127.0.0.1"
		userAgent := ""
		if metadata != nil {
			ipAddress = metadata.IPAddress
			userAgent = metadata.UserAgent
		}

		verification := &models.EmailVerification{
			CorrelationID: uuid.New(),
			CustomerID:    customer.ID,
			Token:         token,
			Type:          models.EmailVerificationTypePasswordReset,
			Status:        models.EmailVerificationStatusPending,
			ExpiresAt:     utils.UTCNowAdd(utils.PasswordResetExpiry),
			IPAddress:     &ipAddress,
			UserAgent:     &userAgent,
		}

		if err := lf.verificationRepo.Save(txCtx, verification); err != nil {
			return nil, err
		}

		body := fmt.Sprintf("Your password reset code is: %s. This code will expire in %s.", token, utils.PasswordResetExpiry)
		if _, err := lf.mailer.Deliver(txCtx, customer.Email, customer.FullName(), "Password reset", body); err != nil {
			// Log mail failure but don't fail the entire process
			errMsg := fmt.Sprintf("Reset token generated but email failed: %v", err)
			_ = lf.LogPasswordResetAttempt(txCtx, customer, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)
		}

		return &dto.ForgotPasswordResponse{
			CustomerID:  customer.ID,
			MaskedEmail: dto.MaskEmail(customer.Email),
			TokenExpiry: verification.ExpiresAt,
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Forgot password failed: %s", err.Error())
		_ = lf.LogPasswordResetAttempt(ctx, customer, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Forgot password failed", err)
	} else {
		msg := fmt.Sprintf("Password reset token sent successfully: %d", resp.CustomerID)
		_ = lf.LogPasswordResetAttempt(ctx, customer, models.AuditActionPasswordResetRequested, msg, true, nil, metadata)
	}

	return resp, nil
}

// ResetPassword completes the password reset process with token verification
func (lf *LoginFlowImpl) ResetPassword(ctx context.Context, request *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error) {
	// Validate business rules
	if err := lf.validateResetPasswordRequest(request); err != nil {
		return nil, NewBusinessError("RESET_PASSWORD_VALIDATION_FAILED", "Reset password validation failed", err)
	}

	var customer *models.Customer

	resp, err := lf.WithResetPasswordTransaction(ctx, func(txCtx context.Context) (*dto.ResetPasswordResponse, error) {
		verification, err := lf.verificationRepo.ByToken(txCtx, request.Token)
		if err != nil {
			return nil, err
		}
		if verification == nil || verification.Type != models.EmailVerificationTypePasswordReset {
			return nil, ErrNoValidTokenFound
		}
		if verification.Status == models.EmailVerificationStatusUsed {
			return nil, ErrTokenAlreadyUsed
		}
		if verification.IsExpired() {
			return nil, ErrTokenExpired
		}

		customer, err = getCustomer(txCtx, lf.customerRepo, verification.CustomerID)
		if err != nil {
			return nil, err
		}

		// Hash the new password
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(request.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}

		if err := lf.customerRepo.UpdatePassword(txCtx, customer.ID, string(hashedPassword)); err != nil {
			return nil, err
		}

		if err := lf.verificationRepo.MarkUsed(txCtx, verification.ID, utils.UTCNow()); err != nil {
			return nil, err
		}

		// Invalidate every existing session for this customer
		if err := lf.sessionRepo.ExpireAllCustomerSessions(txCtx, customer.ID); err != nil {
			return nil, err
		}

		// Create new session for the customer
		session, err := lf.CreateSession(txCtx, customer.ID, metadata)
		if err != nil {
			return nil, err
		}

		return &dto.ResetPasswordResponse{
			Customer: ToAuthCustomerDTO(*customer),
			Session:  ToCustomerSessionDTO(*session),
		}, nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Password reset failed: %s", err.Error())
		_ = lf.LogPasswordResetAttempt(ctx, customer, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("PASSWORD_RESET_FAILED", "Password reset failed", err)
	} else {
		msg := fmt.Sprintf("Password reset completed successfully: %d", resp.Customer.ID)
		_ = lf.LogPasswordResetAttempt(ctx, customer, models.AuditActionPasswordResetCompleted, msg, true, nil, metadata)
	}

	return resp, nil
}

// Private helper methods

func (lf *LoginFlowImpl) CreateSession(ctx context.Context, customerID uint, metadata *ClientMetadata) (*models.CustomerSession, error) {
	// Generate tokens
	accessToken, refreshToken, err := lf.tokenService.GenerateTokens(customerID)
	if err != nil {
		return nil, err
	}

	expiresAt := utils.UTCNowAdd(utils.SessionTimeout)

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.CustomerSession{
		CustomerID:    customerID,
		CorrelationID: uuid.New(),
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     expiresAt,
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	err = lf.sessionRepo.Save(ctx, session)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (lf *LoginFlowImpl) LogLoginAttempt(ctx context.Context, customer *models.Customer, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
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
		ErrorMessage: errMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return lf.auditRepo.Save(ctx, audit)
}

func (lf *LoginFlowImpl) LogPasswordResetAttempt(ctx context.Context, customer *models.Customer, action string, description string, success bool, errMsg *string, metadata *ClientMetadata) error {
	return lf.LogLoginAttempt(ctx, customer, action, description, success, errMsg, metadata)
}

func (lf *LoginFlowImpl) WithLoginTransaction(ctx context.Context, fn func(context.Context) (*dto.LoginResponse, error)) (*dto.LoginResponse, error) {
	var result *dto.LoginResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoginFlowImpl) WithForgotPasswordTransaction(ctx context.Context, fn func(context.Context) (*dto.ForgotPasswordResponse, error)) (*dto.ForgotPasswordResponse, error) {
	var result *dto.ForgotPasswordResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoginFlowImpl) WithResetPasswordTransaction(ctx context.Context, fn func(context.Context) (*dto.ResetPasswordResponse, error)) (*dto.ResetPasswordResponse, error) {
	var result *dto.ResetPasswordResponse
	var fnErr error

	err := repository.WithTransaction(ctx, lf.db, func(ctx context.Context) error {
		result, fnErr = fn(ctx)
		return fnErr
	})

	if err != nil {
		return nil, err
	}
	return result, fnErr
}

func (lf *LoginFlowImpl) validateLoginRequest(request *dto.LoginRequest) error {
	if request.Email == "" {
		return ErrCustomerNotFound
	}
	if request.Password == "" {
		return ErrIncorrectPassword
	}

	return nil
}

func (lf *LoginFlowImpl) validateResetPasswordRequest(request *dto.ResetPasswordRequest) error {
	if request.Token == "" {
		return ErrNoValidTokenFound
	}
	if request.NewPassword == "" || request.NewPassword != request.ConfirmPassword {
		return ErrIncorrectPassword
	}

	return nil
}
