package scheduler

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schedNow = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

type schedHarness struct {
	campaignRepo *stubCampaignRepo
	queueRepo    *stubQueueRepo
	callRepo     *stubCallRepo
	dispatch     *stubDispatch
	sched        *CampaignScheduler
}

func newSchedHarness(t *testing.T, cfg config.SchedulerConfig) *schedHarness {
	t.Helper()
	if cfg.MaxWakeInterval == 0 {
		cfg.MaxWakeInterval = time.Minute
	}
	if cfg.ActivationBatch == 0 {
		cfg.ActivationBatch = 100
	}

	h := &schedHarness{
		campaignRepo: newStubCampaignRepo(),
		queueRepo:    newStubQueueRepo(),
		callRepo:     newStubCallRepo(),
		dispatch:     &stubDispatch{},
	}
	h.sched = NewCampaignScheduler(
		h.campaignRepo,
		h.queueRepo,
		h.callRepo,
		h.dispatch,
		cfg,
		log.New(io.Discard, "", 0),
	)
	h.sched.now = func() time.Time { return schedNow }
	return h
}

// addCampaign seeds a campaign with a 09:00-17:00 window over the given dates
func (h *schedHarness) addCampaign(status models.CampaignStatus, start, end time.Time) *models.Campaign {
	c := &models.Campaign{
		CustomerID:    1,
		AgentID:       1,
		Title:         "test campaign",
		Status:        status,
		StartDate:     start,
		EndDate:       end,
		FirstCallTime: 9 * 60,
		LastCallTime:  17 * 60,
	}
	h.campaignRepo.add(c)
	return c
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunOnceActivatesDueCampaigns(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{})
	due := h.addCampaign(models.CampaignStatusScheduled, day(2026, 3, 1), day(2026, 3, 31))
	notYet := h.addCampaign(models.CampaignStatusScheduled, day(2026, 4, 1), day(2026, 4, 30))
	h.queueRepo.add(&models.QueueEntry{CampaignID: due.ID, ContactID: 1, Status: models.QueueEntryStatusPending, Position: 1})

	h.sched.runOnce(context.Background())

	assert.Equal(t, models.CampaignStatusActive, h.campaignRepo.status(due.ID))
	assert.Equal(t, models.CampaignStatusScheduled, h.campaignRepo.status(notYet.ID))
}

func TestRunOnceFinishesScheduledCampaignWhoseWindowPassed(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{})
	missed := h.addCampaign(models.CampaignStatusScheduled, day(2026, 1, 1), day(2026, 1, 31))
	entry := &models.QueueEntry{CampaignID: missed.ID, ContactID: 1, Status: models.QueueEntryStatusPending, Position: 1}
	h.queueRepo.add(entry)

	h.sched.runOnce(context.Background())

	assert.Equal(t, models.CampaignStatusCompleted, h.campaignRepo.status(missed.ID))
	assert.Equal(t, models.QueueEntryStatusCancelled, h.queueRepo.status(entry.ID))
}

func TestActivateDueHonorsBatchLimit(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{ActivationBatch: 1})
	c1 := h.addCampaign(models.CampaignStatusScheduled, day(2026, 3, 1), day(2026, 3, 31))
	c2 := h.addCampaign(models.CampaignStatusScheduled, day(2026, 3, 1), day(2026, 3, 31))

	h.sched.activateDue(context.Background(), schedNow)

	activated := 0
	for _, id := range []uint{c1.ID, c2.ID} {
		if h.campaignRepo.status(id) == models.CampaignStatusActive {
			activated++
		}
	}
	assert.Equal(t, 1, activated)
}

func TestFinishExhaustedCompletesDrainedCampaign(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{})
	drained := h.addCampaign(models.CampaignStatusActive, day(2026, 3, 1), day(2026, 3, 31))
	working := h.addCampaign(models.CampaignStatusActive, day(2026, 3, 1), day(2026, 3, 31))
	h.queueRepo.add(&models.QueueEntry{CampaignID: working.ID, ContactID: 1, Status: models.QueueEntryStatusPending, Position: 1})

	h.sched.finishExhausted(context.Background(), schedNow)

	assert.Equal(t, models.CampaignStatusCompleted, h.campaignRepo.status(drained.ID))
	assert.Equal(t, models.CampaignStatusActive, h.campaignRepo.status(working.ID))
}

func TestFinishExhaustedCancelsPendingWhenWindowGone(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{})
	expired := h.addCampaign(models.CampaignStatusActive, day(2026, 2, 1), day(2026, 2, 28))
	pending := &models.QueueEntry{CampaignID: expired.ID, ContactID: 1, Status: models.QueueEntryStatusPending, Position: 1}
	processing := &models.QueueEntry{CampaignID: expired.ID, ContactID: 2, Status: models.QueueEntryStatusProcessing, Position: 2}
	h.queueRepo.add(pending)
	h.queueRepo.add(processing)

	h.sched.finishExhausted(context.Background(), schedNow)

	assert.Equal(t, models.CampaignStatusCompleted, h.campaignRepo.status(expired.ID))
	assert.Equal(t, models.QueueEntryStatusCancelled, h.queueRepo.status(pending.ID))
	// In-flight work settles through webhooks, not the scheduler
	assert.Equal(t, models.QueueEntryStatusProcessing, h.queueRepo.status(processing.ID))
}

func TestRunOnceDrivesDispatchUntilIdle(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{})
	h.dispatch.results = []int{3, 2, 0}

	h.sched.runOnce(context.Background())

	assert.Equal(t, 3, h.dispatch.passes)
	status, err := h.sched.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, status.LastPassDispatch)
	require.NotNil(t, status.LastPassAt)
	assert.Equal(t, schedNow, *status.LastPassAt)
}

func TestNotifyCoalescesWakes(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{})

	for i := 0; i < 10; i++ {
		h.sched.Notify()
	}
	assert.Len(t, h.sched.notifyCh, 1)

	// Draining one wake empties the channel
	<-h.sched.notifyCh
	assert.Empty(t, h.sched.notifyCh)
}

func TestNextSleepTargetsEarliestWindowOpening(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{MaxWakeInterval: time.Hour})
	// Window opens tomorrow at 09:00; now is 14:00 today
	h.addCampaign(models.CampaignStatusScheduled, day(2026, 3, 3), day(2026, 3, 31))

	sleep := h.sched.nextSleep(context.Background())

	// Next opening is 19 hours away, beyond the wake cap
	assert.Equal(t, time.Hour, sleep)
}

func TestNextSleepShortensForImminentOpening(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{MaxWakeInterval: time.Hour})
	c := h.addCampaign(models.CampaignStatusScheduled, day(2026, 3, 2), day(2026, 3, 31))
	c.FirstCallTime = 14*60 + 10 // opens ten minutes from schedNow
	c.LastCallTime = 17 * 60
	h.campaignRepo.add(c)

	sleep := h.sched.nextSleep(context.Background())
	assert.Equal(t, 10*time.Minute, sleep)

	status, err := h.sched.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.NextWakeAt)
	assert.Equal(t, schedNow.Add(10*time.Minute), *status.NextWakeAt)
}

func TestNextSleepDefaultsToCapWithoutCampaigns(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{MaxWakeInterval: 30 * time.Second})
	sleep := h.sched.nextSleep(context.Background())
	assert.Equal(t, 30*time.Second, sleep)
}

func TestStartAndStop(t *testing.T) {
	h := newSchedHarness(t, config.SchedulerConfig{MaxWakeInterval: time.Hour})

	stop := h.sched.Start(context.Background())

	require.Eventually(t, func() bool {
		status, err := h.sched.Status(context.Background())
		return err == nil && status.LastPassAt != nil
	}, time.Second, 10*time.Millisecond)

	status, err := h.sched.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)

	stop()
	require.Eventually(t, func() bool {
		status, err := h.sched.Status(context.Background())
		return err == nil && !status.Running
	}, time.Second, 10*time.Millisecond)
}
