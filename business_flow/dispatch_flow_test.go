package businessflow

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/Yatagarasu/app/dto"
	"github.com/amirphl/Yatagarasu/models"
	"github.com/amirphl/Yatagarasu/repository"
	"github.com/amirphl/Yatagarasu/utils"
)

// Stubs embed the repository interfaces so only the methods the dispatch
// engine touches need an implementation.

type stubCampaignRepo struct {
	repository.CampaignRepository
	byID     map[uint]*models.Campaign
	eligible []*models.Campaign
}

func (s *stubCampaignRepo) ByIDWithRelations(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.byID[id], nil
}

func (s *stubCampaignRepo) ListEligible(ctx context.Context, now time.Time, includeInactive bool) ([]*models.Campaign, error) {
	return s.eligible, nil
}

type stubAttemptRepo struct {
	repository.DeliveryAttemptRepository
	saved   []*models.DeliveryAttempt
	saveErr error
}

func (s *stubAttemptRepo) Save(ctx context.Context, attempt *models.DeliveryAttempt) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, attempt)
	return nil
}

type stubRunRepo struct {
	repository.DispatchRunRepository
	saved   []*models.DispatchRun
	updated []*models.DispatchRun
}

func (s *stubRunRepo) Save(ctx context.Context, run *models.DispatchRun) error {
	run.ID = uint(len(s.saved) + 1)
	s.saved = append(s.saved, run)
	return nil
}

func (s *stubRunRepo) Update(ctx context.Context, run *models.DispatchRun) error {
	s.updated = append(s.updated, run)
	return nil
}

type stubCustomerRepo struct {
	repository.CustomerRepository
	byID    map[uint]*models.Customer
	byEmail map[string]*models.Customer
}

func (s *stubCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	return s.byID[id], nil
}

func (s *stubCustomerRepo) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	return s.byEmail[email], nil
}

type stubAuditRepo struct {
	repository.AuditLogRepository
	saved []*models.AuditLog
}

func (s *stubAuditRepo) Save(ctx context.Context, entry *models.AuditLog) error {
	s.saved = append(s.saved, entry)
	return nil
}

// stubMailer fails delivery for addresses listed in failFor
type stubMailer struct {
	failFor map[string]error
	calls   []string
}

func (m *stubMailer) Deliver(ctx context.Context, to, toName, subject, body string) (string, error) {
	m.calls = append(m.calls, to)
	if err, ok := m.failFor[to]; ok {
		return "", err
	}
	return "250 OK", nil
}

type dispatchFixture struct {
	flow     DispatchFlow
	campaign *stubCampaignRepo
	attempts *stubAttemptRepo
	runs     *stubRunRepo
	customer *stubCustomerRepo
	audit    *stubAuditRepo
	mailer   *stubMailer
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{
		campaign: &stubCampaignRepo{byID: map[uint]*models.Campaign{}},
		attempts: &stubAttemptRepo{},
		runs:     &stubRunRepo{},
		customer: &stubCustomerRepo{byID: map[uint]*models.Customer{}, byEmail: map[string]*models.Customer{}},
		audit:    &stubAuditRepo{},
		mailer:   &stubMailer{failFor: map[string]error{}},
	}
	f.flow = NewDispatchFlow(f.campaign, f.attempts, f.runs, f.customer, f.audit, f.mailer, nil, nil, nil, log.Default())
	return f
}

func activeCampaign(id uint, customerID uint, recipients ...models.Recipient) *models.Campaign {
	now := utils.UTCNow()
	return &models.Campaign{
		ID:         id,
		StartTime:  now.Add(-time.Hour),
		EndTime:    now.Add(time.Hour),
		IsActive:   utils.ToPtr(true),
		MessageID:  1,
		Message:    &models.Message{ID: 1, Subject: "Hello", Body: "Body"},
		CustomerID: &customerID,
		Recipients: recipients,
	}
}

func TestDispatchCampaign(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingMessage", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		campaign.Message = nil

		result, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceCLI)
		require.ErrorIs(t, err, ErrCampaignWithoutMessage)
		assert.True(t, result.Skipped)
		assert.Equal(t, SkipReasonMissingMessage, result.SkipReason)
		assert.Empty(t, f.mailer.calls)
		assert.Empty(t, f.runs.saved)
	})

	t.Run("NotStartedSkips", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		campaign.StartTime = utils.UTCNow().Add(time.Hour)
		campaign.EndTime = utils.UTCNow().Add(2 * time.Hour)

		result, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceScheduler)
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, SkipReasonNotStarted, result.SkipReason)
		assert.Empty(t, f.mailer.calls)
	})

	t.Run("ForceOverridesStatus", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com", FullName: "A"})
		campaign.IsActive = utils.ToPtr(false)

		result, err := f.flow.DispatchCampaign(ctx, campaign, true, false, models.DispatchSourceCLI)
		require.NoError(t, err)
		assert.False(t, result.Skipped)
		assert.Equal(t, 1, result.SuccessCount)
		assert.Equal(t, []string{"a@example.com"}, f.mailer.calls)
	})

	t.Run("NoRecipientsSkips", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(1, 10)

		result, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceCLI)
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.Equal(t, SkipReasonNoRecipients, result.SkipReason)
		assert.Empty(t, f.runs.saved)
	})

	t.Run("DryRunWritesNothing", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(1, 10,
			models.Recipient{ID: 1, Email: "a@example.com"},
			models.Recipient{ID: 2, Email: "b@example.com"},
		)

		result, err := f.flow.DispatchCampaign(ctx, campaign, false, true, models.DispatchSourceCLI)
		require.NoError(t, err)
		assert.True(t, result.DryRun)
		assert.False(t, result.Skipped)
		assert.Equal(t, 0, result.SuccessCount)
		assert.Empty(t, f.mailer.calls)
		assert.Empty(t, f.runs.saved)
		assert.Empty(t, f.attempts.saved)
		assert.Empty(t, f.audit.saved)
	})

	t.Run("DeliversToEveryRecipient", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(7, 10,
			models.Recipient{ID: 1, Email: "a@example.com", FullName: "A"},
			models.Recipient{ID: 2, Email: "b@example.com", FullName: "B"},
			models.Recipient{ID: 3, Email: "c@example.com", FullName: "C"},
		)

		result, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceAPI)
		require.NoError(t, err)
		assert.Equal(t, 3, result.SuccessCount)
		assert.Equal(t, 0, result.FailedCount)
		assert.Len(t, f.attempts.saved, 3)

		require.Len(t, f.runs.saved, 1)
		run := f.runs.saved[0]
		assert.Equal(t, uint(7), run.CampaignID)
		assert.Equal(t, 3, run.TotalCount)
		assert.Equal(t, models.DispatchSourceAPI, run.Source)
		assert.Len(t, run.RecipientIDs, 3)

		require.Len(t, f.runs.updated, 1)
		assert.Equal(t, 3, f.runs.updated[0].SuccessCount)
		assert.NotNil(t, f.runs.updated[0].FinishedAt)

		for _, attempt := range f.attempts.saved {
			assert.Equal(t, uint(7), attempt.CampaignID)
			assert.Equal(t, models.DeliveryAttemptStatusSuccess, attempt.Status)
			require.NotNil(t, attempt.DispatchRunID)
			assert.Equal(t, run.ID, *attempt.DispatchRunID)
		}

		require.Len(t, f.audit.saved, 1)
		assert.Equal(t, models.AuditActionCampaignDispatched, f.audit.saved[0].Action)
	})

	t.Run("FailureNeverAbortsTheLoop", func(t *testing.T) {
		f := newDispatchFixture()
		f.mailer.failFor["b@example.com"] = errors.New("mailbox unavailable")
		campaign := activeCampaign(7, 10,
			models.Recipient{ID: 1, Email: "a@example.com"},
			models.Recipient{ID: 2, Email: "b@example.com"},
			models.Recipient{ID: 3, Email: "c@example.com"},
		)

		result, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceCLI)
		require.NoError(t, err)
		assert.Equal(t, 2, result.SuccessCount)
		assert.Equal(t, 1, result.FailedCount)
		assert.Len(t, f.mailer.calls, 3)
		require.Len(t, f.attempts.saved, 3)

		failed := f.attempts.saved[1]
		assert.Equal(t, models.DeliveryAttemptStatusFailed, failed.Status)
		assert.Equal(t, "mailbox unavailable", failed.Response)
		assert.Equal(t, "b@example.com", failed.RecipientEmail)

		assert.Equal(t, 2, f.runs.updated[0].SuccessCount)
		assert.Equal(t, 1, f.runs.updated[0].FailedCount)
	})

	t.Run("AttemptSnapshotsRecipientEmail", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(1, 10, models.Recipient{ID: 4, Email: "snap@example.com", FullName: "Snap"})

		_, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceCLI)
		require.NoError(t, err)
		require.Len(t, f.attempts.saved, 1)
		assert.Equal(t, "snap@example.com", f.attempts.saved[0].RecipientEmail)
		assert.Equal(t, uint(4), f.attempts.saved[0].RecipientID)
		assert.Equal(t, "250 OK", f.attempts.saved[0].Response)
	})

	t.Run("RedispatchAppendsFreshAttempts", func(t *testing.T) {
		f := newDispatchFixture()
		campaign := activeCampaign(7, 10,
			models.Recipient{ID: 1, Email: "a@example.com"},
			models.Recipient{ID: 2, Email: "b@example.com"},
		)

		_, err := f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceAPI)
		require.NoError(t, err)
		_, err = f.flow.DispatchCampaign(ctx, campaign, false, false, models.DispatchSourceAPI)
		require.NoError(t, err)

		// No dedup across runs: each dispatch records one attempt per
		// recipient under its own run
		require.Len(t, f.runs.saved, 2)
		require.Len(t, f.attempts.saved, 4)
		firstRunID := f.runs.saved[0].ID
		secondRunID := f.runs.saved[1].ID
		assert.NotEqual(t, firstRunID, secondRunID)
		assert.Equal(t, firstRunID, *f.attempts.saved[0].DispatchRunID)
		assert.Equal(t, firstRunID, *f.attempts.saved[1].DispatchRunID)
		assert.Equal(t, secondRunID, *f.attempts.saved[2].DispatchRunID)
		assert.Equal(t, secondRunID, *f.attempts.saved[3].DispatchRunID)
	})
}

func TestSendCampaign(t *testing.T) {
	ctx := context.Background()

	owner := &models.Customer{ID: 10, Email: "owner@example.com"}
	stranger := &models.Customer{ID: 20, Email: "other@example.com"}

	t.Run("OwnerCanSend", func(t *testing.T) {
		f := newDispatchFixture()
		f.customer.byID[10] = owner
		f.campaign.byID[5] = activeCampaign(5, 10, models.Recipient{ID: 1, Email: "a@example.com"})

		result, err := f.flow.SendCampaign(ctx, sendRequest(5, 10), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
	})

	t.Run("StrangerDenied", func(t *testing.T) {
		f := newDispatchFixture()
		f.customer.byID[20] = stranger
		f.campaign.byID[5] = activeCampaign(5, 10, models.Recipient{ID: 1, Email: "a@example.com"})

		_, err := f.flow.SendCampaign(ctx, sendRequest(5, 20), nil)
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.Empty(t, f.mailer.calls)
	})

	t.Run("ManagerCannotSendOwnedCampaign", func(t *testing.T) {
		f := newDispatchFixture()
		manager := &models.Customer{ID: 30, IsManager: utils.ToPtr(true)}
		f.customer.byID[30] = manager
		f.campaign.byID[5] = activeCampaign(5, 10, models.Recipient{ID: 1, Email: "a@example.com"})

		_, err := f.flow.SendCampaign(ctx, sendRequest(5, 30), nil)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("ManagerCanSendOrphanedCampaign", func(t *testing.T) {
		f := newDispatchFixture()
		manager := &models.Customer{ID: 30, IsManager: utils.ToPtr(true)}
		f.customer.byID[30] = manager
		orphan := activeCampaign(5, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		orphan.CustomerID = nil
		f.campaign.byID[5] = orphan

		result, err := f.flow.SendCampaign(ctx, sendRequest(5, 30), nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
	})

	t.Run("UnknownCampaign", func(t *testing.T) {
		f := newDispatchFixture()
		f.customer.byID[10] = owner

		_, err := f.flow.SendCampaign(ctx, sendRequest(99, 10), nil)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})

	t.Run("NotStartedIsABusinessError", func(t *testing.T) {
		f := newDispatchFixture()
		f.customer.byID[10] = owner
		campaign := activeCampaign(5, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		campaign.StartTime = utils.UTCNow().Add(time.Hour)
		campaign.EndTime = utils.UTCNow().Add(2 * time.Hour)
		f.campaign.byID[5] = campaign

		_, err := f.flow.SendCampaign(ctx, sendRequest(5, 10), nil)
		assert.True(t, IsCampaignNotStarted(err))
	})

	t.Run("NoRecipientsIsABusinessError", func(t *testing.T) {
		f := newDispatchFixture()
		f.customer.byID[10] = owner
		f.campaign.byID[5] = activeCampaign(5, 10)

		_, err := f.flow.SendCampaign(ctx, sendRequest(5, 10), nil)
		assert.True(t, IsCampaignNoRecipients(err))
	})
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("MixedOutcomes", func(t *testing.T) {
		f := newDispatchFixture()
		f.mailer.failFor["bad@example.com"] = errors.New("bounced")

		ok := activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		partial := activeCampaign(2, 10,
			models.Recipient{ID: 2, Email: "bad@example.com"},
			models.Recipient{ID: 3, Email: "c@example.com"},
		)
		empty := activeCampaign(3, 10)
		f.campaign.eligible = []*models.Campaign{ok, partial, empty}

		summary, err := f.flow.RunBatch(ctx, BatchOptions{Source: models.DispatchSourceScheduler})
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Total)
		// partial counts toward both succeeded and failed
		assert.Equal(t, 2, summary.Succeeded)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 1, summary.Skipped)
	})

	t.Run("SkipIsAudited", func(t *testing.T) {
		f := newDispatchFixture()
		f.campaign.eligible = []*models.Campaign{activeCampaign(3, 10)}

		_, err := f.flow.RunBatch(ctx, BatchOptions{Source: models.DispatchSourceScheduler})
		require.NoError(t, err)
		require.Len(t, f.audit.saved, 1)
		assert.Equal(t, models.AuditActionCampaignSkipped, f.audit.saved[0].Action)
	})

	t.Run("ExplicitCampaignBypassesWindowFilter", func(t *testing.T) {
		f := newDispatchFixture()
		future := activeCampaign(8, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		future.StartTime = utils.UTCNow().Add(time.Hour)
		future.EndTime = utils.UTCNow().Add(2 * time.Hour)
		f.campaign.byID[8] = future

		summary, err := f.flow.RunBatch(ctx, BatchOptions{CampaignID: utils.ToPtr(uint(8)), Force: true, Source: models.DispatchSourceCLI})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Total)
		assert.Equal(t, 1, summary.Succeeded)
		assert.Equal(t, []string{"a@example.com"}, f.mailer.calls)
	})

	t.Run("ExplicitCampaignNotFoundYieldsEmptySet", func(t *testing.T) {
		f := newDispatchFixture()

		summary, err := f.flow.RunBatch(ctx, BatchOptions{CampaignID: utils.ToPtr(uint(404)), Source: models.DispatchSourceCLI})
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Total)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0], "404")
		assert.Empty(t, f.mailer.calls)
	})

	t.Run("OwnerFilter", func(t *testing.T) {
		f := newDispatchFixture()
		f.customer.byEmail["owner@example.com"] = &models.Customer{ID: 10, Email: "owner@example.com"}
		mine := activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		theirs := activeCampaign(2, 20, models.Recipient{ID: 2, Email: "b@example.com"})
		f.campaign.eligible = []*models.Campaign{mine, theirs}

		summary, err := f.flow.RunBatch(ctx, BatchOptions{OwnerEmail: utils.ToPtr("owner@example.com"), Source: models.DispatchSourceCLI})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Total)
		assert.Equal(t, []string{"a@example.com"}, f.mailer.calls)
	})

	t.Run("UnknownOwnerYieldsEmptySet", func(t *testing.T) {
		f := newDispatchFixture()
		f.campaign.eligible = []*models.Campaign{activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com"})}

		summary, err := f.flow.RunBatch(ctx, BatchOptions{OwnerEmail: utils.ToPtr("nobody@example.com"), Source: models.DispatchSourceCLI})
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Total)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0], "nobody@example.com")
		assert.Empty(t, f.mailer.calls)
	})

	t.Run("DryRunCountsAsSucceeded", func(t *testing.T) {
		f := newDispatchFixture()
		f.campaign.eligible = []*models.Campaign{activeCampaign(1, 10, models.Recipient{ID: 1, Email: "a@example.com"})}

		summary, err := f.flow.RunBatch(ctx, BatchOptions{DryRun: true, Source: models.DispatchSourceCLI})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Succeeded)
		assert.Empty(t, f.mailer.calls)
		assert.Empty(t, f.attempts.saved)
	})

	t.Run("MissingMessageCountsAsSkippedWithError", func(t *testing.T) {
		f := newDispatchFixture()
		broken := activeCampaign(9, 10, models.Recipient{ID: 1, Email: "a@example.com"})
		broken.Message = nil
		f.campaign.eligible = []*models.Campaign{broken}

		summary, err := f.flow.RunBatch(ctx, BatchOptions{Source: models.DispatchSourceScheduler})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Skipped)
		require.Len(t, summary.Errors, 1)
		assert.Contains(t, summary.Errors[0], "campaign 9")
	})
}

func sendRequest(campaignID, customerID uint) *dto.SendCampaignRequest {
	return &dto.SendCampaignRequest{CampaignID: campaignID, CustomerID: customerID}
}
