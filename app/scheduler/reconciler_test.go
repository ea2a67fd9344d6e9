package scheduler

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reconcilerHarness struct {
	campaignRepo *stubCampaignRepo
	queueRepo    *stubQueueRepo
	callRepo     *stubCallRepo
	alerts       *stubAlerts
	reconciler   *Reconciler
}

func newReconcilerHarness(t *testing.T) *reconcilerHarness {
	t.Helper()

	h := &reconcilerHarness{
		campaignRepo: newStubCampaignRepo(),
		queueRepo:    newStubQueueRepo(),
		callRepo:     newStubCallRepo(),
		alerts:       newStubAlerts(),
	}
	h.reconciler = NewReconciler(
		h.callRepo,
		h.queueRepo,
		h.campaignRepo,
		h.alerts,
		config.SchedulerConfig{
			ReconcileInterval: time.Minute,
			StuckCallAge:      time.Hour,
			StuckEntryAge:     10 * time.Minute,
		},
		log.New(io.Discard, "", 0),
	)
	h.reconciler.now = func() time.Time { return schedNow }
	return h
}

func (h *reconcilerHarness) addCampaign(maxRetries int) *models.Campaign {
	c := &models.Campaign{
		CustomerID: 1,
		AgentID:    1,
		Status:     models.CampaignStatusActive,
		StartDate:  day(2026, 3, 1),
		EndDate:    day(2026, 3, 31),
		MaxRetries: maxRetries,
	}
	h.campaignRepo.add(c)
	return c
}

// addStuckCall seeds a processing entry and an in-flight call last touched
// two hours before schedNow, past the one hour stuck age.
func (h *reconcilerHarness) addStuckCall(campaign *models.Campaign, attemptCount int) (*models.Call, *models.QueueEntry) {
	entry := &models.QueueEntry{
		CampaignID:   campaign.ID,
		ContactID:    1,
		Status:       models.QueueEntryStatusProcessing,
		AttemptCount: attemptCount,
		Position:     1,
		CreatedAt:    schedNow.Add(-2 * time.Hour),
	}
	h.queueRepo.add(entry)

	call := &models.Call{
		UUID:            uuid.New(),
		QueueEntryID:    &entry.ID,
		CampaignID:      campaign.ID,
		CustomerID:      1,
		AgentID:         1,
		CorrelationID:   uuid.New().String(),
		PhoneNumber:     "+15550000001",
		LifecycleStatus: models.CallStatusInitiated,
		CreatedAt:       schedNow.Add(-2 * time.Hour),
	}
	h.callRepo.add(call)
	return call, entry
}

func TestSweepForceFailsStuckCalls(t *testing.T) {
	h := newReconcilerHarness(t)
	campaign := h.addCampaign(0)
	call, entry := h.addStuckCall(campaign, 0)

	h.reconciler.Sweep(context.Background())

	got := h.callRepo.get(call.ID)
	assert.Equal(t, models.CallStatusFailed, got.LifecycleStatus)
	// Post-processing is claimed so a late terminal webhook cannot bill it
	assert.NotNil(t, got.PostProcessedAt)
	// No retries allowed, so the entry fails too
	assert.Equal(t, models.QueueEntryStatusFailed, h.queueRepo.status(entry.ID))
	assert.Equal(t, []int{1}, h.alerts.stuckCalls)
}

func TestSweepRequeuesEntryWithinRetryBudget(t *testing.T) {
	h := newReconcilerHarness(t)
	campaign := h.addCampaign(3)
	_, entry := h.addStuckCall(campaign, 1)

	h.reconciler.Sweep(context.Background())

	got, err := h.queueRepo.ByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueEntryStatusPending, got.Status)
	assert.Equal(t, 2, got.AttemptCount)
}

func TestSweepLeavesFreshCallsAlone(t *testing.T) {
	h := newReconcilerHarness(t)
	campaign := h.addCampaign(0)
	call, entry := h.addStuckCall(campaign, 0)

	// The call got a webhook recently
	recent := schedNow.Add(-time.Minute)
	c := h.callRepo.get(call.ID)
	c.UpdatedAt = &recent
	h.callRepo.add(c)

	h.reconciler.Sweep(context.Background())

	assert.Equal(t, models.CallStatusInitiated, h.callRepo.get(call.ID).LifecycleStatus)
	assert.Equal(t, models.QueueEntryStatusProcessing, h.queueRepo.status(entry.ID))
	assert.Empty(t, h.alerts.stuckCalls)
}

func TestSweepRequeuesOrphanedProcessingEntries(t *testing.T) {
	h := newReconcilerHarness(t)
	campaign := h.addCampaign(0)

	// Claimed into processing but the process died before placement: no call
	orphan := &models.QueueEntry{
		CampaignID:   campaign.ID,
		ContactID:    1,
		Status:       models.QueueEntryStatusProcessing,
		AttemptCount: 0,
		Position:     1,
		CreatedAt:    schedNow.Add(-time.Hour),
	}
	h.queueRepo.add(orphan)

	h.reconciler.Sweep(context.Background())

	got, err := h.queueRepo.ByID(context.Background(), orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueEntryStatusPending, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	assert.Equal(t, 1, h.alerts.stuckEntries[campaign.ID])
}

func TestSweepCancelsOrphanedEntriesOfFinishedCampaigns(t *testing.T) {
	h := newReconcilerHarness(t)
	campaign := h.addCampaign(3)

	// The campaign was cancelled while this claim sat orphaned
	campaign.Status = models.CampaignStatusCancelled
	h.campaignRepo.add(campaign)

	orphan := &models.QueueEntry{
		CampaignID:   campaign.ID,
		ContactID:    1,
		Status:       models.QueueEntryStatusProcessing,
		AttemptCount: 0,
		Position:     1,
		CreatedAt:    schedNow.Add(-time.Hour),
	}
	h.queueRepo.add(orphan)

	h.reconciler.Sweep(context.Background())

	// Requeueing would strand the entry: nothing dispatches a cancelled
	// campaign, so the entry must end terminal instead
	assert.Equal(t, models.QueueEntryStatusCancelled, h.queueRepo.status(orphan.ID))
	assert.Empty(t, h.alerts.stuckEntries)
}

func TestSweepLeavesEntriesWithLiveCallsToCallSweep(t *testing.T) {
	h := newReconcilerHarness(t)
	campaign := h.addCampaign(0)

	entry := &models.QueueEntry{
		CampaignID: campaign.ID,
		ContactID:  1,
		Status:     models.QueueEntryStatusProcessing,
		Position:   1,
		CreatedAt:  schedNow.Add(-time.Hour),
	}
	h.queueRepo.add(entry)

	// A recent call backs this entry; the entry sweep must not touch it
	recent := schedNow.Add(-time.Minute)
	h.callRepo.add(&models.Call{
		UUID:            uuid.New(),
		QueueEntryID:    &entry.ID,
		CampaignID:      campaign.ID,
		CustomerID:      1,
		AgentID:         1,
		CorrelationID:   uuid.New().String(),
		PhoneNumber:     "+15550000001",
		LifecycleStatus: models.CallStatusRinging,
		CreatedAt:       schedNow.Add(-time.Hour),
		UpdatedAt:       &recent,
	})

	h.reconciler.Sweep(context.Background())

	assert.Equal(t, models.QueueEntryStatusProcessing, h.queueRepo.status(entry.ID))
	assert.Empty(t, h.alerts.stuckEntries)
}
