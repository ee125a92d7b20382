package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amirphl/Yatagarasu/utils"
)

func TestValidateWindow(t *testing.T) {
	flow := &CampaignFlowImpl{}
	now := utils.UTCNow()

	t.Run("ValidFutureWindow", func(t *testing.T) {
		err := flow.validateWindow(now.Add(time.Hour), now.Add(2*time.Hour), true)
		assert.NoError(t, err)
	})

	t.Run("StartEqualsEnd", func(t *testing.T) {
		start := now.Add(time.Hour)
		err := flow.validateWindow(start, start, true)
		assert.ErrorIs(t, err, ErrCampaignStartAfterEnd)
	})

	t.Run("StartAfterEnd", func(t *testing.T) {
		err := flow.validateWindow(now.Add(2*time.Hour), now.Add(time.Hour), true)
		assert.ErrorIs(t, err, ErrCampaignStartAfterEnd)
	})

	t.Run("StartInPastOnCreate", func(t *testing.T) {
		err := flow.validateWindow(now.Add(-time.Hour), now.Add(time.Hour), true)
		assert.ErrorIs(t, err, ErrCampaignStartInPast)
	})

	t.Run("StartJustNowSurvivesLatency", func(t *testing.T) {
		err := flow.validateWindow(now.Add(-10*time.Second), now.Add(time.Hour), true)
		assert.NoError(t, err)
	})

	t.Run("PastStartAllowedOnUpdate", func(t *testing.T) {
		// Updates may adjust a window that has already opened
		err := flow.validateWindow(now.Add(-time.Hour), now.Add(time.Hour), false)
		assert.NoError(t, err)
	})
}
