package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/app/services"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	testingutil "github.com/amirphl/Yatagarasu/testing"
	"github.com/amirphl/Yatagarasu/utils"
)

func newTestTokenService(t *testing.T) services.TokenService {
	t.Helper()
	tokenService, err := services.NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
	)
	require.NoError(t, err)
	return tokenService
}

func newSignupFlow(t *testing.T, testDB *testingutil.TestDB) SignupFlow {
	t.Helper()
	return NewSignupFlow(
		repository.NewCustomerRepository(testDB.DB),
		repository.NewEmailVerificationRepository(testDB.DB),
		repository.NewCustomerSessionRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		newTestTokenService(t),
		services.NewMockMailer(),
		testDB.DB,
	)
}

func TestSignupFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		flow := newSignupFlow(t, testDB)

		t.Run("SuccessfulSignup", func(t *testing.T) {
			req := &dto.SignupRequest{
				FirstName:       "Jane",
				LastName:        "Doe",
				Email:           "jane.doe@example.com",
				Password:        "SecurePass123!",
				ConfirmPassword: "SecurePass123!",
			}

			resp, err := flow.Signup(ctx, req, nil)
			require.NoError(t, err)
			assert.NotZero(t, resp.CustomerID)
			assert.True(t, resp.VerificationSent)
			assert.Equal(t, "ja****@example.com", resp.VerificationTarget)

			var customer models.Customer
			require.NoError(t, testDB.DB.First(&customer, resp.CustomerID).Error)
			assert.False(t, utils.IsTrue(customer.IsEmailVerified))
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte("SecurePass123!")))

			var verification models.EmailVerification
			require.NoError(t, testDB.DB.Where("customer_id = ? AND type = ?", resp.CustomerID, models.EmailVerificationTypeSignup).First(&verification).Error)
			assert.Equal(t, models.EmailVerificationStatusPending, verification.Status)
			assert.True(t, verification.ExpiresAt.After(utils.UTCNow()))
		})

		t.Run("DuplicateEmailRejected", func(t *testing.T) {
			req := &dto.SignupRequest{
				FirstName:       "Jane",
				LastName:        "Again",
				Email:           "jane.doe@example.com",
				Password:        "SecurePass123!",
				ConfirmPassword: "SecurePass123!",
			}

			_, err := flow.Signup(ctx, req, nil)
			assert.True(t, IsEmailAlreadyExists(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSignupFlow(t, testDB)

		t.Run("SuccessfulVerification", func(t *testing.T) {
			customer, err := fixtures.CreateUnverifiedCustomer()
			require.NoError(t, err)
			verification, err := fixtures.CreateTestVerification(customer.ID, models.EmailVerificationTypeSignup)
			require.NoError(t, err)

			resp, err := flow.VerifyEmail(ctx, &dto.EmailVerificationRequest{
				CustomerID: customer.ID,
				Token:      verification.Token,
			}, nil)
			require.NoError(t, err)
			assert.NotEmpty(t, resp.Token)
			assert.NotEmpty(t, resp.RefreshToken)
			assert.True(t, utils.IsTrue(resp.Customer.IsEmailVerified))

			var sessionCount int64
			require.NoError(t, testDB.DB.Model(&models.CustomerSession{}).Where("customer_id = ?", customer.ID).Count(&sessionCount).Error)
			assert.Equal(t, int64(1), sessionCount)
		})

		t.Run("TokenCannotBeReused", func(t *testing.T) {
			customer, err := fixtures.CreateUnverifiedCustomer()
			require.NoError(t, err)
			verification, err := fixtures.CreateTestVerification(customer.ID, models.EmailVerificationTypeSignup)
			require.NoError(t, err)

			req := &dto.EmailVerificationRequest{CustomerID: customer.ID, Token: verification.Token}
			_, err = flow.VerifyEmail(ctx, req, nil)
			require.NoError(t, err)

			_, err = flow.VerifyEmail(ctx, req, nil)
			assert.True(t, IsAlreadyVerified(err))
		})

		t.Run("ExpiredToken", func(t *testing.T) {
			customer, err := fixtures.CreateUnverifiedCustomer()
			require.NoError(t, err)
			verification, err := fixtures.CreateExpiredVerification(customer.ID)
			require.NoError(t, err)

			_, err = flow.VerifyEmail(ctx, &dto.EmailVerificationRequest{
				CustomerID: customer.ID,
				Token:      verification.Token,
			}, nil)
			assert.True(t, IsTokenExpired(err))
		})

		t.Run("TokenBoundToItsCustomer", func(t *testing.T) {
			customer, err := fixtures.CreateUnverifiedCustomer()
			require.NoError(t, err)
			other, err := fixtures.CreateUnverifiedCustomer()
			require.NoError(t, err)
			verification, err := fixtures.CreateTestVerification(customer.ID, models.EmailVerificationTypeSignup)
			require.NoError(t, err)

			_, err = flow.VerifyEmail(ctx, &dto.EmailVerificationRequest{
				CustomerID: other.ID,
				Token:      verification.Token,
			}, nil)
			assert.True(t, IsNoValidTokenFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestResendVerification(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSignupFlow(t, testDB)

		t.Run("ExpiresOldTokenAndIssuesNew", func(t *testing.T) {
			customer, err := fixtures.CreateUnverifiedCustomer()
			require.NoError(t, err)
			old, err := fixtures.CreateTestVerification(customer.ID, models.EmailVerificationTypeSignup)
			require.NoError(t, err)

			resp, err := flow.ResendVerification(ctx, &dto.VerificationResendRequest{CustomerID: customer.ID}, nil)
			require.NoError(t, err)
			assert.True(t, resp.VerificationSent)

			var reloaded models.EmailVerification
			require.NoError(t, testDB.DB.First(&reloaded, old.ID).Error)
			assert.Equal(t, models.EmailVerificationStatusExpired, reloaded.Status)

			var pendingCount int64
			require.NoError(t, testDB.DB.Model(&models.EmailVerification{}).
				Where("customer_id = ? AND status = ?", customer.ID, models.EmailVerificationStatusPending).
				Count(&pendingCount).Error)
			assert.Equal(t, int64(1), pendingCount)
		})

		t.Run("AlreadyVerified", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			_, err = flow.ResendVerification(ctx, &dto.VerificationResendRequest{CustomerID: customer.ID}, nil)
			assert.True(t, IsAlreadyVerified(err))
		})

		return nil
	})
	require.NoError(t, err)
}
