// Package scheduler
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	businessflow "github.com/callpilot/callpilot/business_flow"
	"github.com/callpilot/callpilot/app/dto"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
	"github.com/callpilot/callpilot/utils"
)

// CampaignScheduler owns the engine's timing: it activates campaigns when
// their calling window opens, finishes them when their queue drains or the
// window is exhausted, and drives dispatch passes. It sleeps on a timer aimed
// at the next interesting instant and can be woken early through Notify.
type CampaignScheduler struct {
	campaignRepo repository.CampaignRepository
	queueRepo    repository.QueueEntryRepository
	callRepo     repository.CallRepository
	dispatch     businessflow.DispatchFlow
	cfg          config.SchedulerConfig
	logger       *log.Logger

	// notifyCh coalesces wake requests: capacity one, non-blocking sends. Any
	// number of notifications between passes collapse into a single wake.
	notifyCh chan struct{}
	now      func() time.Time

	mu               sync.Mutex
	running          bool
	nextWakeAt       *time.Time
	lastPassAt       *time.Time
	lastPassDispatch int
}

// NewCampaignScheduler creates a new campaign scheduler instance
func NewCampaignScheduler(
	campaignRepo repository.CampaignRepository,
	queueRepo repository.QueueEntryRepository,
	callRepo repository.CallRepository,
	dispatch businessflow.DispatchFlow,
	cfg config.SchedulerConfig,
	logger *log.Logger,
) *CampaignScheduler {
	if cfg.MaxWakeInterval <= 0 {
		cfg.MaxWakeInterval = time.Minute
	}
	return &CampaignScheduler{
		campaignRepo: campaignRepo,
		queueRepo:    queueRepo,
		callRepo:     callRepo,
		dispatch:     dispatch,
		cfg:          cfg,
		logger:       logger,
		notifyCh:     make(chan struct{}, 1),
		now:          utils.UTCNow,
	}
}

// Notify wakes the scheduler without blocking the caller. Safe to call from
// any goroutine, any number of times.
func (s *CampaignScheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *CampaignScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		s.runOnce(ctx)

		for {
			sleep := s.nextSleep(ctx)
			timer := time.NewTimer(sleep)

			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.notifyCh:
				timer.Stop()
			case <-timer.C:
			}

			s.runOnce(ctx)
		}
	}()

	return cancel
}

// runOnce performs one full scheduler pass: campaign state maintenance first,
// then dispatch passes until the dispatcher reports nothing left to start.
func (s *CampaignScheduler) runOnce(ctx context.Context) {
	schedulerPassesTotal.Inc()
	now := s.now()

	s.activateDue(ctx, now)
	s.finishExhausted(ctx, now)

	dispatched := 0
	for {
		if ctx.Err() != nil {
			break
		}
		n, err := s.dispatch.RunPass(ctx)
		if err != nil {
			s.logger.Printf("scheduler: dispatch pass failed: %v", err)
			break
		}
		dispatched += n
		if n == 0 {
			break
		}
	}
	if dispatched > 0 {
		callsDispatchedTotal.Add(float64(dispatched))
		s.logger.Printf("scheduler: dispatched %d calls", dispatched)
	}

	if inFlight, err := s.callRepo.CountInFlight(ctx); err == nil {
		inFlightCalls.Set(float64(inFlight))
	}

	s.mu.Lock()
	passAt := now
	s.lastPassAt = &passAt
	s.lastPassDispatch = dispatched
	s.mu.Unlock()
}

// activateDue moves scheduled campaigns whose window is open into active.
// Scheduled campaigns whose window already passed are finished instead.
func (s *CampaignScheduler) activateDue(ctx context.Context, now time.Time) {
	campaigns, err := s.campaignRepo.ListByStatuses(ctx, []models.CampaignStatus{models.CampaignStatusScheduled})
	if err != nil {
		s.logger.Printf("scheduler: list scheduled campaigns failed: %v", err)
		return
	}

	activated := 0
	for _, c := range campaigns {
		if activated >= s.cfg.ActivationBatch {
			break
		}
		switch {
		case c.WindowOpenAt(now):
			ok, err := s.campaignRepo.UpdateStatus(ctx, c.ID, models.CampaignStatusScheduled, models.CampaignStatusActive)
			if err != nil {
				s.logger.Printf("scheduler: activate campaign id=%d failed: %v", c.ID, err)
				continue
			}
			if ok {
				activated++
				campaignsActivatedTotal.Inc()
				s.logger.Printf("scheduler: campaign id=%d activated", c.ID)
			}
		case c.WindowExhausted(now):
			s.finishCampaign(ctx, c, models.CampaignStatusScheduled)
		}
	}
}

// finishExhausted completes active campaigns that can do no further work:
// either the queue fully drained or the calling window is gone for good.
func (s *CampaignScheduler) finishExhausted(ctx context.Context, now time.Time) {
	campaigns, err := s.campaignRepo.ListByStatuses(ctx, []models.CampaignStatus{models.CampaignStatusActive})
	if err != nil {
		s.logger.Printf("scheduler: list active campaigns failed: %v", err)
		return
	}

	for _, c := range campaigns {
		if c.WindowExhausted(now) {
			s.finishCampaign(ctx, c, models.CampaignStatusActive)
			continue
		}

		remaining, err := s.queueRepo.CountNonTerminalByCampaign(ctx, c.ID)
		if err != nil {
			s.logger.Printf("scheduler: count queue for campaign id=%d failed: %v", c.ID, err)
			continue
		}
		if remaining == 0 {
			s.finishCampaign(ctx, c, models.CampaignStatusActive)
		}
	}
}

// finishCampaign cancels whatever is still pending and completes the
// campaign. In-flight calls are left to settle through webhooks.
func (s *CampaignScheduler) finishCampaign(ctx context.Context, c *models.Campaign, from models.CampaignStatus) {
	cancelled, err := s.queueRepo.CancelPendingByCampaign(ctx, c.ID)
	if err != nil {
		s.logger.Printf("scheduler: cancel pending entries for campaign id=%d failed: %v", c.ID, err)
		return
	}

	ok, err := s.campaignRepo.UpdateStatus(ctx, c.ID, from, models.CampaignStatusCompleted)
	if err != nil {
		s.logger.Printf("scheduler: complete campaign id=%d failed: %v", c.ID, err)
		return
	}
	if ok {
		campaignsCompletedTotal.Inc()
		s.logger.Printf("scheduler: campaign id=%d completed (%d pending entries cancelled)", c.ID, cancelled)
	}
}

// nextSleep computes how long to sleep until the next planned wake: the
// earliest upcoming window opening across non-terminal campaigns, capped by
// MaxWakeInterval so drift and missed notifications self-heal.
func (s *CampaignScheduler) nextSleep(ctx context.Context) time.Duration {
	now := s.now()
	max := s.cfg.MaxWakeInterval

	campaigns, err := s.campaignRepo.ListByStatuses(ctx, []models.CampaignStatus{
		models.CampaignStatusScheduled,
		models.CampaignStatusActive,
	})
	if err != nil {
		s.logger.Printf("scheduler: compute next wake failed: %v", err)
		s.setNextWake(now.Add(max))
		return max
	}

	var earliest *time.Time
	for _, c := range campaigns {
		open := c.NextWindowOpen(now)
		if open == nil {
			continue
		}
		if earliest == nil || open.Before(*earliest) {
			earliest = open
		}
	}

	sleep := max
	if earliest != nil {
		if until := earliest.Sub(now); until < sleep {
			sleep = until
		}
	}
	if sleep < 0 {
		sleep = 0
	}

	s.setNextWake(now.Add(sleep))
	return sleep
}

func (s *CampaignScheduler) setNextWake(at time.Time) {
	s.mu.Lock()
	s.nextWakeAt = &at
	s.mu.Unlock()
}

// Status reports the scheduler's current view for the operator endpoint
func (s *CampaignScheduler) Status(ctx context.Context) (*dto.SchedulerStatusResponse, error) {
	active, err := s.campaignRepo.ListByStatuses(ctx, []models.CampaignStatus{models.CampaignStatusActive})
	if err != nil {
		return nil, err
	}
	inFlight, err := s.callRepo.CountInFlight(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &dto.SchedulerStatusResponse{
		Message:          "Scheduler status retrieved successfully",
		Running:          s.running,
		ActiveCampaigns:  len(active),
		NextWakeAt:       s.nextWakeAt,
		LastPassAt:       s.lastPassAt,
		LastPassDispatch: s.lastPassDispatch,
		InFlightCalls:    inFlight,
	}, nil
}
