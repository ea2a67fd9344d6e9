// Package businessflow contains the core business logic and use cases for call event processing
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/callpilot/callpilot/app/dto"
	"github.com/callpilot/callpilot/app/services"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
	"github.com/callpilot/callpilot/utils"
)

// CallEventFlow applies provider webhook events to call records. Events may
// arrive duplicated, reordered, or for calls this system never recorded; the
// forward-only lifecycle check plus conditional updates make processing
// idempotent.
type CallEventFlow interface {
	ProcessEvent(ctx context.Context, req *dto.CallEventRequest) error
}

// CallEventFlowImpl implements the call event business flow
type CallEventFlowImpl struct {
	callRepo       repository.CallRepository
	queueRepo      repository.QueueEntryRepository
	campaignRepo   repository.CampaignRepository
	transcriptRepo repository.CallTranscriptRepository
	walletRepo     repository.WalletRepository
	insightRepo    repository.LeadInsightRepository
	alert          services.AlertService
	notifier       Notifier
	billingCfg     config.BillingConfig
	logger         *log.Logger

	// runAsync decouples post-processing from the webhook response path.
	runAsync func(func())
}

// NewCallEventFlow creates a new call event flow instance
func NewCallEventFlow(
	callRepo repository.CallRepository,
	queueRepo repository.QueueEntryRepository,
	campaignRepo repository.CampaignRepository,
	transcriptRepo repository.CallTranscriptRepository,
	walletRepo repository.WalletRepository,
	insightRepo repository.LeadInsightRepository,
	alert services.AlertService,
	notifier Notifier,
	billingCfg config.BillingConfig,
	logger *log.Logger,
) CallEventFlow {
	return &CallEventFlowImpl{
		callRepo:       callRepo,
		queueRepo:      queueRepo,
		campaignRepo:   campaignRepo,
		transcriptRepo: transcriptRepo,
		walletRepo:     walletRepo,
		insightRepo:    insightRepo,
		alert:          alert,
		notifier:       notifier,
		billingCfg:     billingCfg,
		logger:         logger,
		runAsync:       func(fn func()) { go fn() },
	}
}

// ProcessEvent applies one webhook event
func (s *CallEventFlowImpl) ProcessEvent(ctx context.Context, req *dto.CallEventRequest) error {
	newStatus := models.CallLifecycleStatus(req.Status)
	if !newStatus.Valid() {
		return NewBusinessError("UNKNOWN_CALL_STATUS", fmt.Sprintf("Unknown call status %q", req.Status), ErrUnknownCallStatus)
	}

	correlationID := req.CorrelationID()
	if correlationID == "" {
		return NewBusinessError("UNKNOWN_CORRELATION_ID", "Event carries no correlation ID", ErrUnknownCorrelationID)
	}

	call, err := s.callRepo.ByCorrelationID(ctx, correlationID)
	if err != nil {
		return NewBusinessError("CALL_LOOKUP_FAILED", "Failed to lookup call", err)
	}
	if call == nil {
		s.alert.AlertUnknownCorrelation(correlationID, req.Status)
		return NewBusinessError("UNKNOWN_CORRELATION_ID", "No call matches the correlation ID", ErrUnknownCorrelationID)
	}

	if !call.LifecycleStatus.CanTransitionTo(newStatus) {
		s.logger.Printf("call event: ignoring %s -> %s for call %d (stale or duplicate)", call.LifecycleStatus, newStatus, call.ID)
		return NewBusinessError("STALE_CALL_EVENT", "Event does not advance the call lifecycle", ErrStaleCallEvent)
	}

	advanced, err := s.callRepo.AdvanceLifecycle(ctx, call.ID, call.LifecycleStatus, newStatus)
	if err != nil {
		return NewBusinessError("CALL_UPDATE_FAILED", "Failed to advance call lifecycle", err)
	}
	if !advanced {
		// A concurrent event won the conditional update; this one is stale now.
		s.logger.Printf("call event: lost advance race for call %d to %s", call.ID, newStatus)
		return NewBusinessError("STALE_CALL_EVENT", "A concurrent event advanced the call first", ErrStaleCallEvent)
	}
	call.LifecycleStatus = newStatus

	if err := s.applyPayload(ctx, call, req); err != nil {
		// Payload persistence is best effort; the lifecycle advance stands.
		s.logger.Printf("call event: failed to persist payload for call %d: %v", call.ID, err)
	}

	if newStatus.Terminal() {
		if err := s.settleEntry(ctx, call, newStatus); err != nil {
			s.logger.Printf("call event: failed to settle entry for call %d: %v", call.ID, err)
		}
		s.postProcess(ctx, call, newStatus)
	}

	return nil
}

// applyPayload persists the event's attachments: transcript at disconnect,
// recording URL and duration on terminal events.
func (s *CallEventFlowImpl) applyPayload(ctx context.Context, call *models.Call, req *dto.CallEventRequest) error {
	if req.Transcript != nil && *req.Transcript != "" {
		existing, err := s.transcriptRepo.ByCallID(ctx, call.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			transcript := &models.CallTranscript{
				CallID:    call.ID,
				Content:   *req.Transcript,
				CreatedAt: utils.UTCNow(),
			}
			if err := s.transcriptRepo.Save(ctx, transcript); err != nil {
				return err
			}
		}
	}

	changed := false
	if req.RecordingURL != nil && *req.RecordingURL != "" {
		call.RecordingURL = req.RecordingURL
		changed = true
	}
	if req.DurationSeconds != nil {
		call.DurationSeconds = req.DurationSeconds
		changed = true
	}
	if changed {
		return s.callRepo.Update(ctx, call)
	}
	return nil
}

// settleEntry finishes the queue entry behind a terminal call: completed calls
// complete the entry, unsuccessful outcomes re-queue it until the campaign's
// retry budget is spent.
func (s *CallEventFlowImpl) settleEntry(ctx context.Context, call *models.Call, outcome models.CallLifecycleStatus) error {
	if call.QueueEntryID == nil {
		return nil
	}

	entry, err := s.queueRepo.ByID(ctx, *call.QueueEntryID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status.Terminal() {
		return nil
	}

	if outcome == models.CallStatusCompleted {
		if _, err := s.queueRepo.MarkTerminal(ctx, entry.ID, models.QueueEntryStatusCompleted); err != nil {
			return err
		}
		// The terminal call freed a concurrency slot; wake the scheduler so a
		// waiting entry can take it instead of sleeping out the wake interval.
		s.notifier.Notify()
		return s.maybeCompleteCampaign(ctx, call.CampaignID)
	}

	// busy, no-answer, failed: consume one retry if the campaign allows it
	campaign, err := s.campaignRepo.ByID(ctx, call.CampaignID)
	if err != nil {
		return err
	}
	attempts := entry.AttemptCount + 1
	if campaign != nil && attempts <= campaign.MaxRetries {
		if err := s.queueRepo.ReturnToPending(ctx, entry.ID, attempts); err != nil {
			return err
		}
		s.notifier.Notify()
		return nil
	}

	if _, err := s.queueRepo.MarkTerminal(ctx, entry.ID, models.QueueEntryStatusFailed); err != nil {
		return err
	}
	s.notifier.Notify()
	return s.maybeCompleteCampaign(ctx, call.CampaignID)
}

// maybeCompleteCampaign completes an active campaign whose queue has fully
// drained. Lost races are fine: the scheduler sweep reaches the same verdict.
func (s *CallEventFlowImpl) maybeCompleteCampaign(ctx context.Context, campaignID uint) error {
	remaining, err := s.queueRepo.CountNonTerminalByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	ok, err := s.campaignRepo.UpdateStatus(ctx, campaignID, models.CampaignStatusActive, models.CampaignStatusCompleted)
	if err != nil {
		return err
	}
	if ok {
		s.logger.Printf("campaign %d completed: queue drained", campaignID)
		s.notifier.Notify()
	}
	return nil
}

// postProcess claims the exactly-once post-processing slot and, on success,
// runs billing and lead extraction off the webhook path. Duplicate terminal
// events lose the conditional update and do nothing.
func (s *CallEventFlowImpl) postProcess(ctx context.Context, call *models.Call, outcome models.CallLifecycleStatus) {
	claimed, err := s.callRepo.MarkPostProcessed(ctx, call.ID)
	if err != nil {
		s.logger.Printf("call event: failed to claim post-processing for call %d: %v", call.ID, err)
		return
	}
	if !claimed {
		return
	}

	if outcome != models.CallStatusCompleted {
		// Nothing billable or extractable for unanswered/failed calls.
		return
	}

	snapshot := *call
	s.runAsync(func() {
		ctx := context.Background()
		if s.billingCfg.Enabled {
			s.billCall(ctx, &snapshot)
		}
		if s.billingCfg.InsightExtraction {
			s.extractInsight(ctx, &snapshot)
		}
	})
}

// billCall debits the owner's wallet for one completed call. The unique
// call_id transaction index downstream makes a second debit impossible even
// if this runs twice.
func (s *CallEventFlowImpl) billCall(ctx context.Context, call *models.Call) {
	wallet, err := s.walletRepo.ByCustomerID(ctx, call.CustomerID)
	if err != nil || wallet == nil {
		s.alert.AlertWalletDebitFailure(call.CustomerID, call.ID, fmt.Errorf("wallet lookup failed: %v", err))
		return
	}

	duration := 0
	if call.DurationSeconds != nil {
		duration = *call.DurationSeconds
	}
	minutes := int64((duration + 59) / 60)
	amount := minutes * s.billingCfg.PerMinuteCents
	if amount < s.billingCfg.MinimumCallCents {
		amount = s.billingCfg.MinimumCallCents
	}

	if err := s.walletRepo.DebitForCall(ctx, wallet.ID, call.ID, amount, "call_charge"); err != nil {
		s.alert.AlertWalletDebitFailure(call.CustomerID, call.ID, err)
		return
	}
	s.logger.Printf("billed call %d: %d cents (%d seconds)", call.ID, amount, duration)
}

// extractInsight derives a lead insight from the call transcript
func (s *CallEventFlowImpl) extractInsight(ctx context.Context, call *models.Call) {
	transcript, err := s.transcriptRepo.ByCallID(ctx, call.ID)
	if err != nil || transcript == nil {
		return
	}

	insight := buildInsight(call, transcript.Content)
	if err := s.insightRepo.Save(ctx, insight); err != nil {
		s.logger.Printf("failed to save lead insight for call %d: %v", call.ID, err)
	}
}

var (
	positiveMarkers = []string{"interested", "sounds good", "yes", "sign me up", "tell me more", "call me back"}
	negativeMarkers = []string{"not interested", "stop calling", "remove me", "no thanks", "do not call"}
)

// buildInsight runs a keyword heuristic over the transcript. Negative markers
// win ties because "not interested" contains "interested".
func buildInsight(call *models.Call, content string) *models.LeadInsight {
	lowered := strings.ToLower(content)

	sentiment := "neutral"
	var interested *bool
	for _, marker := range negativeMarkers {
		if strings.Contains(lowered, marker) {
			sentiment = "negative"
			interested = utils.ToPtr(false)
			break
		}
	}
	if interested == nil {
		for _, marker := range positiveMarkers {
			if strings.Contains(lowered, marker) {
				sentiment = "positive"
				interested = utils.ToPtr(true)
				break
			}
		}
	}

	var keywords []string
	for _, marker := range append(append([]string{}, negativeMarkers...), positiveMarkers...) {
		if strings.Contains(lowered, marker) {
			keywords = append(keywords, marker)
		}
	}

	summary := content
	if len(summary) > 280 {
		cut := 280
		// Back up to a rune boundary so the cut never produces invalid UTF-8
		for cut > 0 && !utf8.RuneStart(summary[cut]) {
			cut--
		}
		summary = summary[:cut]
	}

	return &models.LeadInsight{
		CallID:     call.ID,
		CampaignID: call.CampaignID,
		Sentiment:  sentiment,
		Interested: interested,
		Summary:    summary,
		Keywords:   keywords,
		CreatedAt:  utils.UTCNow(),
	}
}
