// Package businessflow contains the core business logic and use cases for call dispatch
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/callpilot/callpilot/app/services"
	"github.com/callpilot/callpilot/config"
	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
	"github.com/callpilot/callpilot/utils"
	"github.com/google/uuid"
)

// DispatchFlow drains eligible queue entries into placed calls. One pass
// visits every active campaign whose calling window is open, claims entries
// round-robin across campaigns, and places calls until a concurrency limit or
// the queues stop it.
type DispatchFlow interface {
	// RunPass performs one dispatch pass and reports how many calls were
	// started. A pass that dispatched anything should be followed by another
	// one; a zero return means the engine can sleep until the next wake.
	RunPass(ctx context.Context) (int, error)
}

// errGlobalLimitReached stops the current pass without failing it
var errGlobalLimitReached = errors.New("global concurrency limit reached")

// DispatchFlowImpl implements the dispatch business flow
type DispatchFlowImpl struct {
	campaignRepo repository.CampaignRepository
	customerRepo repository.CustomerRepository
	agentRepo    repository.AgentRepository
	queueRepo    repository.QueueEntryRepository
	callRepo     repository.CallRepository
	placer       services.CallPlacer
	dispatchCfg  config.DispatchConfig
	providerCfg  config.ProviderConfig
	logger       *log.Logger
	now          func() time.Time
}

// NewDispatchFlow creates a new dispatch flow instance
func NewDispatchFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	agentRepo repository.AgentRepository,
	queueRepo repository.QueueEntryRepository,
	callRepo repository.CallRepository,
	placer services.CallPlacer,
	dispatchCfg config.DispatchConfig,
	providerCfg config.ProviderConfig,
	logger *log.Logger,
) DispatchFlow {
	return &DispatchFlowImpl{
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		agentRepo:    agentRepo,
		queueRepo:    queueRepo,
		callRepo:     callRepo,
		placer:       placer,
		dispatchCfg:  dispatchCfg,
		providerCfg:  providerCfg,
		logger:       logger,
		now:          utils.UTCNow,
	}
}

// RunPass performs one dispatch pass
func (f *DispatchFlowImpl) RunPass(ctx context.Context) (int, error) {
	now := f.now()

	campaigns, err := f.campaignRepo.ListByStatuses(ctx, []models.CampaignStatus{models.CampaignStatusActive})
	if err != nil {
		return 0, fmt.Errorf("failed to list active campaigns: %w", err)
	}

	// Only campaigns whose calling window is open right now take part.
	rotation := campaigns[:0]
	for _, c := range campaigns {
		if c.WindowOpenAt(now) {
			rotation = append(rotation, c)
		}
	}
	if len(rotation) == 0 {
		return 0, nil
	}
	sort.Slice(rotation, func(i, j int) bool { return rotation[i].ID < rotation[j].ID })

	// Round-robin: each round gives every remaining campaign one dispatch
	// attempt, so a single long queue cannot starve the others.
	dispatched := 0
	customers := make(map[uint]*models.Customer)
	agents := make(map[uint]*models.Agent)

	for len(rotation) > 0 {
		next := rotation[:0]
		for _, campaign := range rotation {
			if err := ctx.Err(); err != nil {
				return dispatched, err
			}

			ok, err := f.dispatchNext(ctx, campaign, customers, agents)
			if errors.Is(err, errGlobalLimitReached) {
				return dispatched, nil
			}
			if err != nil {
				f.logger.Printf("dispatch pass: campaign %d: %v", campaign.ID, err)
				continue
			}
			if ok {
				dispatched++
				next = append(next, campaign)
			}
		}
		rotation = next
	}

	return dispatched, nil
}

// dispatchNext claims and dispatches at most one entry for the campaign.
// Returns false when the campaign has nothing dispatchable this round.
func (f *DispatchFlowImpl) dispatchNext(ctx context.Context, campaign *models.Campaign, customers map[uint]*models.Customer, agents map[uint]*models.Agent) (bool, error) {
	admitted, err := f.admit(ctx, campaign, customers)
	if err != nil {
		return false, err
	}
	if !admitted {
		return false, nil
	}

	entry, err := f.claimNext(ctx, campaign.ID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	agent, err := f.agent(ctx, campaign.AgentID, agents)
	if err != nil {
		// Release the claim so the entry is not stranded in processing.
		_ = f.queueRepo.ReturnToPending(ctx, entry.ID, entry.AttemptCount)
		return false, err
	}

	return f.placeCall(ctx, campaign, agent, entry)
}

// admit enforces the three concurrency limits from live call counts. Counts
// are queried fresh on every admission; nothing is cached between passes.
func (f *DispatchFlowImpl) admit(ctx context.Context, campaign *models.Campaign, customers map[uint]*models.Customer) (bool, error) {
	global, err := f.callRepo.CountInFlight(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count in-flight calls: %w", err)
	}
	if global >= int64(f.dispatchCfg.GlobalMaxConcurrent) {
		return false, errGlobalLimitReached
	}

	customer, ok := customers[campaign.CustomerID]
	if !ok {
		customer, err = f.customerRepo.ByID(ctx, campaign.CustomerID)
		if err != nil {
			return false, fmt.Errorf("failed to lookup customer %d: %w", campaign.CustomerID, err)
		}
		if customer == nil {
			return false, ErrCustomerNotFound
		}
		customers[campaign.CustomerID] = customer
	}

	customerLimit := customer.MaxConcurrentCalls
	if customerLimit <= 0 {
		customerLimit = f.dispatchCfg.PerCustomerDefault
	}
	byCustomer, err := f.callRepo.CountInFlightByCustomer(ctx, campaign.CustomerID)
	if err != nil {
		return false, fmt.Errorf("failed to count customer in-flight calls: %w", err)
	}
	if byCustomer >= int64(customerLimit) {
		return false, nil
	}

	// The campaign limit only narrows the customer limit, never widens it.
	if campaign.MaxConcurrentCalls != nil && *campaign.MaxConcurrentCalls < customerLimit {
		byCampaign, err := f.callRepo.CountInFlightByCampaign(ctx, campaign.ID)
		if err != nil {
			return false, fmt.Errorf("failed to count campaign in-flight calls: %w", err)
		}
		if byCampaign >= int64(*campaign.MaxConcurrentCalls) {
			return false, nil
		}
	}

	return true, nil
}

// claimNext claims the first pending entry that survives the conditional
// update. Losing a claim race just moves on to the next candidate.
func (f *DispatchFlowImpl) claimNext(ctx context.Context, campaignID uint) (*models.QueueEntry, error) {
	candidates, err := f.queueRepo.ListPendingByCampaign(ctx, campaignID, f.dispatchCfg.ClaimBatch, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending entries: %w", err)
	}

	for _, candidate := range candidates {
		claimed, err := f.queueRepo.MarkProcessing(ctx, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim entry %d: %w", candidate.ID, err)
		}
		if claimed {
			return candidate, nil
		}
	}
	return nil, nil
}

func (f *DispatchFlowImpl) agent(ctx context.Context, agentID uint, agents map[uint]*models.Agent) (*models.Agent, error) {
	if agent, ok := agents[agentID]; ok {
		return agent, nil
	}
	agent, err := f.agentRepo.ByID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup agent %d: %w", agentID, err)
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}
	agents[agentID] = agent
	return agent, nil
}

// placeCall generates the correlation ID, calls the provider, and records the
// outcome. The correlation ID exists before the provider call so an ambiguous
// outcome still leaves a call row that webhooks can match.
func (f *DispatchFlowImpl) placeCall(ctx context.Context, campaign *models.Campaign, agent *models.Agent, entry *models.QueueEntry) (bool, error) {
	if entry.Contact == nil {
		_ = f.queueRepo.ReturnToPending(ctx, entry.ID, entry.AttemptCount)
		return false, fmt.Errorf("entry %d has no contact preloaded", entry.ID)
	}

	correlationID := uuid.New().String()
	req := services.PlaceCallRequest{
		CorrelationID:   correlationID,
		ProviderAgentID: agent.ProviderAgentID,
		PhoneNumber:     entry.Contact.PhoneNumber,
		CampaignUUID:    campaign.UUID.String(),
	}

	retryCfg := services.RetryConfig{
		MaxAttempts: f.providerCfg.MaxRetries,
		BaseDelay:   f.providerCfg.RetryBaseDelay,
		MaxDelay:    f.providerCfg.RetryMaxDelay,
	}

	var resp *services.PlaceCallResponse
	err := services.WithRetry(ctx, retryCfg, func(ctx context.Context) error {
		r, err := f.placer.PlaceCall(ctx, req)
		if err != nil {
			// An unknown outcome must not be retried: the provider may have
			// started the call already and a retry would dial twice.
			if errors.Is(err, services.ErrPlacementAmbiguous) {
				return services.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	})

	switch {
	case err == nil:
		call := f.newCall(campaign, agent, entry, correlationID)
		call.ProviderID = &resp.ProviderID
		if saveErr := f.callRepo.Save(ctx, call); saveErr != nil {
			// The call is live at the provider. Keep the entry in processing;
			// the unknown-correlation alert and reconciliation take over.
			return false, fmt.Errorf("placed call %s but failed to record it: %w", correlationID, saveErr)
		}
		return true, nil

	case errors.Is(err, services.ErrPlacementAmbiguous):
		// Record the call anyway: if the provider did start it, webhooks will
		// advance it; if not, the reconciliation sweep fails it.
		call := f.newCall(campaign, agent, entry, correlationID)
		if saveErr := f.callRepo.Save(ctx, call); saveErr != nil {
			return false, fmt.Errorf("failed to record ambiguous call %s: %w", correlationID, saveErr)
		}
		f.logger.Printf("dispatch: ambiguous placement for entry %d, recorded call %s for reconciliation", entry.ID, correlationID)
		return true, nil

	default:
		// Definite rejection: no call exists. Retry the entry later or fail it
		// once the dispatch attempts are spent.
		attempts := entry.AttemptCount + 1
		if attempts >= f.dispatchCfg.MaxDispatchAttempts {
			if _, markErr := f.queueRepo.MarkTerminal(ctx, entry.ID, models.QueueEntryStatusFailed); markErr != nil {
				return false, markErr
			}
			f.logger.Printf("dispatch: entry %d failed after %d placement attempts: %v", entry.ID, attempts, err)
			return false, nil
		}
		if retErr := f.queueRepo.ReturnToPending(ctx, entry.ID, attempts); retErr != nil {
			return false, retErr
		}
		f.logger.Printf("dispatch: placement rejected for entry %d (attempt %d): %v", entry.ID, attempts, err)
		return false, nil
	}
}

func (f *DispatchFlowImpl) newCall(campaign *models.Campaign, agent *models.Agent, entry *models.QueueEntry, correlationID string) *models.Call {
	return &models.Call{
		UUID:            uuid.New(),
		QueueEntryID:    &entry.ID,
		CampaignID:      campaign.ID,
		CustomerID:      campaign.CustomerID,
		AgentID:         agent.ID,
		CorrelationID:   correlationID,
		PhoneNumber:     entry.Contact.PhoneNumber,
		LifecycleStatus: models.CallStatusInitiated,
		CreatedAt:       f.now(),
	}
}
