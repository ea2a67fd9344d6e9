package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/callpilot/callpilot/app/services"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
	"github.com/callpilot/callpilot/utils"
)

const reconcileBatch = 100

// Reconciler sweeps for work the webhook path lost: calls stuck in a
// non-terminal state past the age limit are force-failed, and processing
// entries with no call behind them are returned to pending. It is the safety
// net behind ambiguous placements and dropped provider events.
type Reconciler struct {
	callRepo     repository.CallRepository
	queueRepo    repository.QueueEntryRepository
	campaignRepo repository.CampaignRepository
	alert        services.AlertService
	cfg          config.SchedulerConfig
	logger       *log.Logger
	now          func() time.Time
}

// NewReconciler creates a new reconciler instance
func NewReconciler(
	callRepo repository.CallRepository,
	queueRepo repository.QueueEntryRepository,
	campaignRepo repository.CampaignRepository,
	alert services.AlertService,
	cfg config.SchedulerConfig,
	logger *log.Logger,
) *Reconciler {
	return &Reconciler{
		callRepo:     callRepo,
		queueRepo:    queueRepo,
		campaignRepo: campaignRepo,
		alert:        alert,
		cfg:          cfg,
		logger:       logger,
		now:          utils.UTCNow,
	}
}

// Start launches the reconciliation loop and returns a stop function
func (r *Reconciler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(r.cfg.ReconcileInterval)
		defer ticker.Stop()

		r.Sweep(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			}
		}
	}()

	return cancel
}

// Sweep runs one reconciliation pass
func (r *Reconciler) Sweep(ctx context.Context) {
	now := r.now()
	r.sweepStuckCalls(ctx, now)
	r.sweepStuckEntries(ctx, now)
}

// sweepStuckCalls force-fails calls that stopped receiving events. The
// conditional lifecycle advance loses cleanly to a late webhook, so a call
// that recovered at the last moment is left alone.
func (r *Reconciler) sweepStuckCalls(ctx context.Context, now time.Time) {
	stuck, err := r.callRepo.ListStuck(ctx, now.Add(-r.cfg.StuckCallAge), reconcileBatch)
	if err != nil {
		r.logger.Printf("reconciler: list stuck calls failed: %v", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	failed := 0
	for _, call := range stuck {
		ok, err := r.callRepo.AdvanceLifecycle(ctx, call.ID, call.LifecycleStatus, models.CallStatusFailed)
		if err != nil {
			r.logger.Printf("reconciler: fail stuck call id=%d failed: %v", call.ID, err)
			continue
		}
		if !ok {
			continue
		}
		failed++
		callsReconciledTotal.Inc()

		// Claim post-processing so a late terminal webhook cannot bill the call.
		if _, err := r.callRepo.MarkPostProcessed(ctx, call.ID); err != nil {
			r.logger.Printf("reconciler: mark post-processed call id=%d failed: %v", call.ID, err)
		}

		r.settleEntry(ctx, call)
	}

	if failed > 0 {
		r.logger.Printf("reconciler: force-failed %d stuck calls", failed)
		r.alert.AlertStuckCalls(failed)
	}
}

// settleEntry resolves the queue entry behind a force-failed call, honoring
// the campaign's retry budget like a regular failed outcome would.
func (r *Reconciler) settleEntry(ctx context.Context, call *models.Call) {
	if call.QueueEntryID == nil {
		return
	}
	entry, err := r.queueRepo.ByID(ctx, *call.QueueEntryID)
	if err != nil || entry == nil || entry.Status.Terminal() {
		return
	}

	campaign, err := r.campaignRepo.ByID(ctx, call.CampaignID)
	if err != nil {
		r.logger.Printf("reconciler: lookup campaign id=%d failed: %v", call.CampaignID, err)
		return
	}

	attempts := entry.AttemptCount + 1
	if campaign != nil && !campaign.Status.Terminal() && attempts <= campaign.MaxRetries {
		if err := r.queueRepo.ReturnToPending(ctx, entry.ID, attempts); err != nil {
			r.logger.Printf("reconciler: requeue entry id=%d failed: %v", entry.ID, err)
		}
		return
	}
	if _, err := r.queueRepo.MarkTerminal(ctx, entry.ID, models.QueueEntryStatusFailed); err != nil {
		r.logger.Printf("reconciler: fail entry id=%d failed: %v", entry.ID, err)
	}
}

// sweepStuckEntries rescues entries claimed into processing that never got a
// call record, which happens when the process dies between claim and
// placement. Entries with a live call are left for the call sweep; entries
// whose campaign already ended are cancelled rather than requeued.
func (r *Reconciler) sweepStuckEntries(ctx context.Context, now time.Time) {
	stuck, err := r.queueRepo.ListStuckProcessing(ctx, now.Add(-r.cfg.StuckEntryAge), reconcileBatch)
	if err != nil {
		r.logger.Printf("reconciler: list stuck entries failed: %v", err)
		return
	}

	requeuedByCampaign := make(map[uint]int)
	for _, entry := range stuck {
		call, err := r.callRepo.ByQueueEntryID(ctx, entry.ID)
		if err != nil {
			r.logger.Printf("reconciler: lookup call for entry id=%d failed: %v", entry.ID, err)
			continue
		}
		if call != nil {
			// The call exists; its own age limit decides.
			continue
		}
		campaign, err := r.campaignRepo.ByID(ctx, entry.CampaignID)
		if err != nil {
			r.logger.Printf("reconciler: lookup campaign id=%d failed: %v", entry.CampaignID, err)
			continue
		}
		if campaign == nil || campaign.Status.Terminal() {
			// Nothing dispatches a finished campaign; requeueing would strand
			// the entry in pending forever.
			if _, err := r.queueRepo.MarkTerminal(ctx, entry.ID, models.QueueEntryStatusCancelled); err != nil {
				r.logger.Printf("reconciler: cancel orphaned entry id=%d failed: %v", entry.ID, err)
			}
			continue
		}
		if err := r.queueRepo.ReturnToPending(ctx, entry.ID, entry.AttemptCount+1); err != nil {
			r.logger.Printf("reconciler: requeue entry id=%d failed: %v", entry.ID, err)
			continue
		}
		entriesRequeuedTotal.Inc()
		requeuedByCampaign[entry.CampaignID]++
	}

	for campaignID, count := range requeuedByCampaign {
		r.logger.Printf("reconciler: requeued %d stuck entries for campaign id=%d", count, campaignID)
		r.alert.AlertStuckEntries(campaignID, count)
	}
}
