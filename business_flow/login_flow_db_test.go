package businessflow

import (
	"testing"

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

func newLoginFlow(t *testing.T, testDB *testingutil.TestDB) LoginFlow {
	t.Helper()
	return NewLoginFlow(
		repository.NewCustomerRepository(testDB.DB),
		repository.NewCustomerSessionRepository(testDB.DB),
		repository.NewEmailVerificationRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		newTestTokenService(t),
		services.NewMockMailer(),
		testDB.DB,
	)
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newLoginFlow(t, testDB)

		t.Run("SuccessfulLogin", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, resp.Customer.ID)
			assert.NotEmpty(t, resp.Session.SessionToken)
			require.NotNil(t, resp.Session.RefreshToken)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.NotNil(t, reloaded.LastLoginAt)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "WrongPass123!",
			}, nil)
			assert.True(t, IsIncorrectPassword(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}, nil)
			assert.True(t, IsCustomerNotFound(err))
		})

		t.Run("BlockedCustomer", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			customer.IsBlocked = utils.ToPtr(true)
			require.NoError(t, testDB.DB.Save(customer).Error)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, nil)
			assert.True(t, IsAccountBlocked(err))
		})

		t.Run("InactiveCustomer", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			customer.IsActive = utils.ToPtr(false)
			require.NoError(t, testDB.DB.Save(customer).Error)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    customer.Email,
				Password: "TestPass123!",
			}, nil)
			assert.True(t, IsAccountInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newLoginFlow(t, testDB)

		t.Run("RefreshRotatesSession", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			login, err := flow.Login(ctx, &dto.LoginRequest{Email: customer.Email, Password: "TestPass123!"}, nil)
			require.NoError(t, err)

			refreshed, err := flow.RefreshSession(ctx, &dto.RefreshTokenRequest{
				RefreshToken: *login.Session.RefreshToken,
			}, nil)
			require.NoError(t, err)
			assert.NotEqual(t, login.Session.SessionToken, refreshed.Session.SessionToken)

			// The replaced session's refresh token is dead
			_, err = flow.RefreshSession(ctx, &dto.RefreshTokenRequest{
				RefreshToken: *login.Session.RefreshToken,
			}, nil)
			assert.True(t, IsNoValidTokenFound(err))
		})

		t.Run("LogoutExpiresSession", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			login, err := flow.Login(ctx, &dto.LoginRequest{Email: customer.Email, Password: "TestPass123!"}, nil)
			require.NoError(t, err)

			resp, err := flow.Logout(ctx, login.Session.SessionToken, nil)
			require.NoError(t, err)
			assert.Equal(t, "Logged out successfully", resp.Message)

			_, err = flow.RefreshSession(ctx, &dto.RefreshTokenRequest{
				RefreshToken: *login.Session.RefreshToken,
			}, nil)
			assert.True(t, IsNoValidTokenFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newLoginFlow(t, testDB)

		t.Run("FullResetRoundtrip", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)

			login, err := flow.Login(ctx, &dto.LoginRequest{Email: customer.Email, Password: "TestPass123!"}, nil)
			require.NoError(t, err)

			forgot, err := flow.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: customer.Email}, nil)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, forgot.CustomerID)

			var verification models.EmailVerification
			require.NoError(t, testDB.DB.
				Where("customer_id = ? AND type = ? AND status = ?",
					customer.ID, models.EmailVerificationTypePasswordReset, models.EmailVerificationStatusPending).
				Order("id DESC").First(&verification).Error)

			reset, err := flow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Token:           verification.Token,
				NewPassword:     "BrandNewPass456!",
				ConfirmPassword: "BrandNewPass456!",
			}, nil)
			require.NoError(t, err)
			assert.Equal(t, customer.ID, reset.Customer.ID)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.PasswordHash), []byte("BrandNewPass456!")))

			// Pre-reset sessions must be dead
			_, err = flow.RefreshSession(ctx, &dto.RefreshTokenRequest{
				RefreshToken: *login.Session.RefreshToken,
			}, nil)
			assert.True(t, IsNoValidTokenFound(err))

			_, err = flow.Login(ctx, &dto.LoginRequest{Email: customer.Email, Password: "TestPass123!"}, nil)
			assert.True(t, IsIncorrectPassword(err))

			relogin, err := flow.Login(ctx, &dto.LoginRequest{Email: customer.Email, Password: "BrandNewPass456!"}, nil)
			require.NoError(t, err)
			assert.NotEmpty(t, relogin.Session.SessionToken)
		})

		t.Run("ResetTokenSingleUse", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			verification, err := fixtures.CreateTestVerification(customer.ID, models.EmailVerificationTypePasswordReset)
			require.NoError(t, err)

			req := &dto.ResetPasswordRequest{
				Token:           verification.Token,
				NewPassword:     "BrandNewPass456!",
				ConfirmPassword: "BrandNewPass456!",
			}
			_, err = flow.ResetPassword(ctx, req, nil)
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, req, nil)
			assert.True(t, IsTokenAlreadyUsed(err))
		})

		t.Run("SignupTokenCannotResetPassword", func(t *testing.T) {
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			verification, err := fixtures.CreateTestVerification(customer.ID, models.EmailVerificationTypeSignup)
			require.NoError(t, err)

			_, err = flow.ResetPassword(ctx, &dto.ResetPasswordRequest{
				Token:           verification.Token,
				NewPassword:     "BrandNewPass456!",
				ConfirmPassword: "BrandNewPass456!",
			}, nil)
			assert.True(t, IsNoValidTokenFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
