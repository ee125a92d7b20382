// Package testing provides test utilities and database setup for the mailing platform
package testing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active, verified customer
func (tf *TestFixtures) CreateTestCustomer() (*models.Customer, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := utils.UTCNow()
	customer := &models.Customer{
		UUID:            uuid.New(),
		FirstName:       "John",
		LastName:        "Doe",
		Email:           fmt.Sprintf("john.doe.%d@example.com", mrand.Intn(100000000)),
		PasswordHash:    string(hashedPassword),
		IsActive:        utils.ToPtr(true),
		IsEmailVerified: utils.ToPtr(true),
		IsBlocked:       utils.ToPtr(false),
		IsManager:       utils.ToPtr(false),
		EmailVerifiedAt: &now,
	}

	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}

	return customer, nil
}

// CreateTestManager creates a customer with the manager role
func (tf *TestFixtures) CreateTestManager() (*models.Customer, error) {
	manager, err := tf.CreateTestCustomer()
	if err != nil {
		return nil, err
	}
	manager.IsManager = utils.ToPtr(true)
	if err := tf.DB.DB.Save(manager).Error; err != nil {
		return nil, fmt.Errorf("failed to promote test customer: %w", err)
	}
	return manager, nil
}

// CreateUnverifiedCustomer creates a customer that has not yet verified email
func (tf *TestFixtures) CreateUnverifiedCustomer() (*models.Customer, error) {
	customer, err := tf.CreateTestCustomer()
	if err != nil {
		return nil, err
	}
	customer.IsEmailVerified = utils.ToPtr(false)
	customer.EmailVerifiedAt = nil
	if err := tf.DB.DB.Save(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to update test customer: %w", err)
	}
	return customer, nil
}

// CreateTestVerification creates an email verification record
func (tf *TestFixtures) CreateTestVerification(customerID uint, verificationType string) (*models.EmailVerification, error) {
	token, err := GenerateSecureToken(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	verification := &models.EmailVerification{
		CorrelationID: uuid.New(),
		CustomerID:    customerID,
		Token:         token,
		Type:          verificationType,
		Status:        models.EmailVerificationStatusPending,
		ExpiresAt:     time.Now().Add(30 * time.Minute),
	}

	if err := tf.DB.DB.Create(verification).Error; err != nil {
		return nil, fmt.Errorf("failed to create test verification: %w", err)
	}

	return verification, nil
}

// CreateExpiredVerification creates an already expired verification token
func (tf *TestFixtures) CreateExpiredVerification(customerID uint) (*models.EmailVerification, error) {
	token, err := GenerateSecureToken(24)
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}

	verification := &models.EmailVerification{
		CorrelationID: uuid.New(),
		CustomerID:    customerID,
		Token:         token,
		Type:          models.EmailVerificationTypeSignup,
		Status:        models.EmailVerificationStatusPending,
		ExpiresAt:     time.Now().Add(-1 * time.Hour), // Expired 1 hour ago
	}

	if err := tf.DB.DB.Create(verification).Error; err != nil {
		return nil, fmt.Errorf("failed to create expired verification: %w", err)
	}

	return verification, nil
}

// GenerateSecureToken returns a URL-safe random token
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateTestSession creates a test customer session
func (tf *TestFixtures) CreateTestSession(customerID uint) (*models.CustomerSession, error) {
	sessionToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure session token: %w", err)
	}

	refreshToken, err := GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secure refresh token: %w", err)
	}

	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	session := &models.CustomerSession{
		CorrelationID: uuid.New(),
		CustomerID:    customerID,
		SessionToken:  sessionToken,
		RefreshToken:  &refreshToken,
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsActive:      utils.ToPtr(true),
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
	}

	if err := tf.DB.DB.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create test session: %w", err)
	}

	return session, nil
}

// CreateTestRecipient creates a recipient owned by the given customer
func (tf *TestFixtures) CreateTestRecipient(customerID uint) (*models.Recipient, error) {
	recipient := &models.Recipient{
		UUID:       uuid.New(),
		Email:      fmt.Sprintf("recipient.%d@example.com", mrand.Intn(100000000)),
		FullName:   "Test Recipient",
		CustomerID: &customerID,
	}

	if err := tf.DB.DB.Create(recipient).Error; err != nil {
		return nil, fmt.Errorf("failed to create test recipient: %w", err)
	}

	return recipient, nil
}

// CreateTestMessage creates a message template owned by the given customer
func (tf *TestFixtures) CreateTestMessage(customerID uint) (*models.Message, error) {
	message := &models.Message{
		UUID:       uuid.New(),
		Subject:    "Test Subject",
		Body:       "Hello from the test suite.",
		CustomerID: &customerID,
	}

	if err := tf.DB.DB.Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to create test message: %w", err)
	}

	return message, nil
}

// CreateTestCampaign creates a campaign inside its delivery window
func (tf *TestFixtures) CreateTestCampaign(customerID, messageID uint, recipients []*models.Recipient) (*models.Campaign, error) {
	now := utils.UTCNow()
	campaign := &models.Campaign{
		UUID:       uuid.New(),
		StartTime:  now.Add(-1 * time.Hour),
		EndTime:    now.Add(1 * time.Hour),
		IsActive:   utils.ToPtr(true),
		MessageID:  messageID,
		CustomerID: &customerID,
	}
	for _, r := range recipients {
		campaign.Recipients = append(campaign.Recipients, *r)
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(customerID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
