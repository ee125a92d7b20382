package models

import (
	"testing"
	"time"

	"github.com/amirphl/Yatagarasu/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCampaignStatus(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("BeforeWindow", func(t *testing.T) {
		status := ResolveCampaignStatus(start.Add(-time.Second), start, end, true)
		assert.Equal(t, CampaignStatusCreated, status)
	})

	t.Run("AtWindowStart", func(t *testing.T) {
		// Boundaries are inclusive
		status := ResolveCampaignStatus(start, start, end, true)
		assert.Equal(t, CampaignStatusStarted, status)
	})

	t.Run("InsideWindow", func(t *testing.T) {
		status := ResolveCampaignStatus(start.Add(time.Hour), start, end, true)
		assert.Equal(t, CampaignStatusStarted, status)
	})

	t.Run("AtWindowEnd", func(t *testing.T) {
		status := ResolveCampaignStatus(end, start, end, true)
		assert.Equal(t, CampaignStatusStarted, status)
	})

	t.Run("AfterWindow", func(t *testing.T) {
		status := ResolveCampaignStatus(end.Add(time.Second), start, end, true)
		assert.Equal(t, CampaignStatusCompleted, status)
	})

	t.Run("InactiveInsideWindow", func(t *testing.T) {
		// A deactivated campaign inside its window is completed, never created
		status := ResolveCampaignStatus(start.Add(time.Hour), start, end, false)
		assert.Equal(t, CampaignStatusCompleted, status)
	})

	t.Run("InactiveBeforeWindow", func(t *testing.T) {
		// Activity only matters once the window has opened
		status := ResolveCampaignStatus(start.Add(-time.Hour), start, end, false)
		assert.Equal(t, CampaignStatusCreated, status)
	})

	t.Run("InactiveAfterWindow", func(t *testing.T) {
		status := ResolveCampaignStatus(end.Add(time.Hour), start, end, false)
		assert.Equal(t, CampaignStatusCompleted, status)
	})
}

func TestCampaignStatusAt(t *testing.T) {
	now := utils.UTCNow()

	campaign := &Campaign{
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		IsActive:  utils.ToPtr(true),
	}

	assert.Equal(t, CampaignStatusStarted, campaign.StatusAt(now))
	assert.Equal(t, CampaignStatusCreated, campaign.StatusAt(now.Add(-2*time.Hour)))
	assert.Equal(t, CampaignStatusCompleted, campaign.StatusAt(now.Add(2*time.Hour)))

	t.Run("NilIsActiveTreatedAsInactive", func(t *testing.T) {
		campaign := &Campaign{
			StartTime: now.Add(-time.Hour),
			EndTime:   now.Add(time.Hour),
		}
		assert.Equal(t, CampaignStatusCompleted, campaign.StatusAt(now))
	})
}

func TestCampaignStatusDisplayName(t *testing.T) {
	now := utils.UTCNow()

	campaign := &Campaign{
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
		IsActive:  utils.ToPtr(true),
	}

	assert.Equal(t, "Created", campaign.GetStatusDisplayName(now))
	assert.Equal(t, "Started", campaign.GetStatusDisplayName(now.Add(90*time.Minute)))
	assert.Equal(t, "Completed", campaign.GetStatusDisplayName(now.Add(3*time.Hour)))
}

func TestCampaignStatusValueScan(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		for _, status := range []CampaignStatus{CampaignStatusCreated, CampaignStatusStarted, CampaignStatusCompleted} {
			assert.True(t, status.Valid())
			v, err := status.Value()
			require.NoError(t, err)
			assert.Equal(t, string(status), v)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		status := CampaignStatus("running")
		assert.False(t, status.Valid())
		_, err := status.Value()
		assert.Error(t, err)
	})

	t.Run("Scan", func(t *testing.T) {
		var status CampaignStatus
		require.NoError(t, status.Scan("started"))
		assert.Equal(t, CampaignStatusStarted, status)

		require.NoError(t, status.Scan([]byte("completed")))
		assert.Equal(t, CampaignStatusCompleted, status)

		require.NoError(t, status.Scan(nil))
		assert.Equal(t, CampaignStatus(""), status)

		assert.Error(t, status.Scan(42))
	})
}

func TestDeliveryAttemptStatus(t *testing.T) {
	assert.True(t, DeliveryAttemptStatusSuccess.Valid())
	assert.True(t, DeliveryAttemptStatusFailed.Valid())
	assert.False(t, DeliveryAttemptStatus("pending").Valid())

	attempt := &DeliveryAttempt{Status: DeliveryAttemptStatusSuccess}
	assert.True(t, attempt.IsSuccess())
	attempt.Status = DeliveryAttemptStatusFailed
	assert.False(t, attempt.IsSuccess())
}

func TestCustomerCanLogin(t *testing.T) {
	customer := &Customer{
		IsActive:  utils.ToPtr(true),
		IsBlocked: utils.ToPtr(false),
	}
	assert.True(t, customer.CanLogin())

	customer.IsBlocked = utils.ToPtr(true)
	assert.False(t, customer.CanLogin())

	customer.IsBlocked = utils.ToPtr(false)
	customer.IsActive = utils.ToPtr(false)
	assert.False(t, customer.CanLogin())
}

func TestCustomerFullName(t *testing.T) {
	customer := &Customer{FirstName: "Jane", LastName: "Doe"}
	assert.Equal(t, "Jane Doe", customer.FullName())

	assert.Equal(t, "Jane", (&Customer{FirstName: "Jane"}).FullName())
	assert.Equal(t, "Doe", (&Customer{LastName: "Doe"}).FullName())
}
