package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/Yatagarasu/models"
	testingutil "github.com/amirphl/Yatagarasu/testing"
	"github.com/amirphl/Yatagarasu/utils"
)

func TestCampaignRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := NewCampaignRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		message, err := fixtures.CreateTestMessage(customer.ID)
		require.NoError(t, err)
		recipient, err := fixtures.CreateTestRecipient(customer.ID)
		require.NoError(t, err)

		t.Run("ByIDWithRelationsPreloadsMessageAndRecipients", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(customer.ID, message.ID, []*models.Recipient{recipient})
			require.NoError(t, err)

			loaded, err := repo.ByIDWithRelations(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			require.NotNil(t, loaded.Message)
			assert.Equal(t, message.Subject, loaded.Message.Subject)
			require.Len(t, loaded.Recipients, 1)
			assert.Equal(t, recipient.Email, loaded.Recipients[0].Email)
		})

		t.Run("ByIDWithRelationsNotFound", func(t *testing.T) {
			loaded, err := repo.ByIDWithRelations(ctx, 999999)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})

		t.Run("ListEligible", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			message, err := fixtures.CreateTestMessage(customer.ID)
			require.NoError(t, err)

			now := utils.UTCNow()
			inWindow, err := fixtures.CreateTestCampaign(customer.ID, message.ID, nil)
			require.NoError(t, err)

			future := &models.Campaign{
				StartTime:  now.Add(time.Hour),
				EndTime:    now.Add(2 * time.Hour),
				IsActive:   utils.ToPtr(true),
				MessageID:  message.ID,
				CustomerID: &customer.ID,
			}
			require.NoError(t, testDB.DB.Create(future).Error)

			inactive := &models.Campaign{
				StartTime:  now.Add(-time.Hour),
				EndTime:    now.Add(time.Hour),
				IsActive:   utils.ToPtr(false),
				MessageID:  message.ID,
				CustomerID: &customer.ID,
			}
			require.NoError(t, testDB.DB.Create(inactive).Error)

			eligible, err := repo.ListEligible(ctx, now, false)
			require.NoError(t, err)
			require.Len(t, eligible, 1)
			assert.Equal(t, inWindow.ID, eligible[0].ID)
			require.NotNil(t, eligible[0].Message, "eligible campaigns arrive with relations loaded")

			// Force lifts the window filter but never revives inactive campaigns
			forced, err := repo.ListEligible(ctx, now, true)
			require.NoError(t, err)
			require.Len(t, forced, 2)
			assert.Equal(t, inWindow.ID, forced[0].ID)
			assert.Equal(t, future.ID, forced[1].ID)
		})

		t.Run("ReplaceRecipients", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			message, err := fixtures.CreateTestMessage(customer.ID)
			require.NoError(t, err)
			first, err := fixtures.CreateTestRecipient(customer.ID)
			require.NoError(t, err)
			second, err := fixtures.CreateTestRecipient(customer.ID)
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(customer.ID, message.ID, []*models.Recipient{first})
			require.NoError(t, err)

			require.NoError(t, repo.ReplaceRecipients(ctx, campaign, []models.Recipient{*second}))

			loaded, err := repo.ByIDWithRelations(ctx, campaign.ID)
			require.NoError(t, err)
			require.Len(t, loaded.Recipients, 1)
			assert.Equal(t, second.ID, loaded.Recipients[0].ID)
		})

		t.Run("DeleteRemovesMembershipAndAttempts", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			message, err := fixtures.CreateTestMessage(customer.ID)
			require.NoError(t, err)
			recipient, err := fixtures.CreateTestRecipient(customer.ID)
			require.NoError(t, err)
			campaign, err := fixtures.CreateTestCampaign(customer.ID, message.ID, []*models.Recipient{recipient})
			require.NoError(t, err)

			attempt := &models.DeliveryAttempt{
				CampaignID:     campaign.ID,
				RecipientID:    recipient.ID,
				RecipientEmail: recipient.Email,
				Status:         models.DeliveryAttemptStatusSuccess,
				Response:       utils.DeliveredResponse,
			}
			require.NoError(t, testDB.DB.Create(attempt).Error)

			require.NoError(t, repo.Delete(ctx, campaign.ID))

			loaded, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)

			var attemptCount int64
			require.NoError(t, testDB.DB.Model(&models.DeliveryAttempt{}).Where("campaign_id = ?", campaign.ID).Count(&attemptCount).Error)
			assert.Zero(t, attemptCount)

			stillThere, err := NewRecipientRepository(testDB.DB).ByID(ctx, recipient.ID)
			require.NoError(t, err)
			assert.NotNil(t, stillThere, "deleting a campaign never deletes directory entries")
		})

		t.Run("CountByMessage", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			customer, err := fixtures.CreateTestCustomer()
			require.NoError(t, err)
			message, err := fixtures.CreateTestMessage(customer.ID)
			require.NoError(t, err)
			_, err = fixtures.CreateTestCampaign(customer.ID, message.ID, nil)
			require.NoError(t, err)
			_, err = fixtures.CreateTestCampaign(customer.ID, message.ID, nil)
			require.NoError(t, err)

			count, err := repo.CountByMessage(ctx, message.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeliveryAttemptRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := NewDeliveryAttemptRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		message, err := fixtures.CreateTestMessage(customer.ID)
		require.NoError(t, err)
		recipient, err := fixtures.CreateTestRecipient(customer.ID)
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(customer.ID, message.ID, []*models.Recipient{recipient})
		require.NoError(t, err)

		save := func(status models.DeliveryAttemptStatus, response string) {
			attempt := &models.DeliveryAttempt{
				CampaignID:     campaign.ID,
				RecipientID:    recipient.ID,
				RecipientEmail: recipient.Email,
				Status:         status,
				Response:       response,
			}
			require.NoError(t, repo.Save(ctx, attempt))
		}

		save(models.DeliveryAttemptStatusSuccess, "250 OK")
		save(models.DeliveryAttemptStatusFailed, "mailbox unavailable")
		save(models.DeliveryAttemptStatusSuccess, "250 OK")

		t.Run("ListByCampaignNewestFirst", func(t *testing.T) {
			attempts, err := repo.ListByCampaign(ctx, campaign.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, attempts, 3)
			assert.Equal(t, recipient.Email, attempts[0].RecipientEmail)
			assert.True(t, attempts[0].ID > attempts[2].ID)
		})

		t.Run("CountByCampaignAndStatus", func(t *testing.T) {
			success, err := repo.CountByCampaignAndStatus(ctx, campaign.ID, models.DeliveryAttemptStatusSuccess)
			require.NoError(t, err)
			assert.Equal(t, int64(2), success)

			failed, err := repo.CountByCampaignAndStatus(ctx, campaign.ID, models.DeliveryAttemptStatusFailed)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failed)
		})

		t.Run("CountByCustomerAndStatus", func(t *testing.T) {
			success, err := repo.CountByCustomerAndStatus(ctx, customer.ID, models.DeliveryAttemptStatusSuccess)
			require.NoError(t, err)
			assert.Equal(t, int64(2), success)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDispatchRunRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		ctx := testingutil.CreateTestContext()
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := NewDispatchRunRepository(testDB.DB)

		customer, err := fixtures.CreateTestCustomer()
		require.NoError(t, err)
		message, err := fixtures.CreateTestMessage(customer.ID)
		require.NoError(t, err)
		campaign, err := fixtures.CreateTestCampaign(customer.ID, message.ID, nil)
		require.NoError(t, err)

		run := &models.DispatchRun{
			CampaignID:   campaign.ID,
			RecipientIDs: []int64{1, 2, 3},
			TotalCount:   3,
			Forced:       utils.ToPtr(false),
			Source:       models.DispatchSourceCLI,
			StartedAt:    utils.UTCNow(),
		}
		require.NoError(t, repo.Save(ctx, run))
		require.NotZero(t, run.ID)

		t.Run("ByCampaignIDReturnsLatest", func(t *testing.T) {
			later := &models.DispatchRun{
				CampaignID:   campaign.ID,
				RecipientIDs: []int64{1},
				TotalCount:   1,
				Forced:       utils.ToPtr(true),
				Source:       models.DispatchSourceScheduler,
				StartedAt:    utils.UTCNow(),
			}
			require.NoError(t, repo.Save(ctx, later))

			latest, err := repo.ByCampaignID(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, later.ID, latest.ID)
			assert.Equal(t, models.DispatchSourceScheduler, latest.Source)
		})

		t.Run("UpdateFinalizesCounters", func(t *testing.T) {
			run.SuccessCount = 2
			run.FailedCount = 1
			run.FinishedAt = utils.UTCNowPtr()
			require.NoError(t, repo.Update(ctx, run))

			loaded, err := repo.ByID(ctx, run.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, 2, loaded.SuccessCount)
			assert.Equal(t, 1, loaded.FailedCount)
			assert.NotNil(t, loaded.FinishedAt)
			assert.Equal(t, []int64{1, 2, 3}, []int64(loaded.RecipientIDs))
		})

		return nil
	})
	require.NoError(t, err)
}
