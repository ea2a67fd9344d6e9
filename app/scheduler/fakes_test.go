package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/repository"
)

// Test stubs embed the repository interfaces so only the methods the
// scheduler and reconciler actually call need implementations; anything else
// panics loudly.

type stubCampaignRepo struct {
	repository.CampaignRepository
	mu        sync.Mutex
	campaigns map[uint]*models.Campaign
}

func newStubCampaignRepo() *stubCampaignRepo {
	return &stubCampaignRepo{campaigns: make(map[uint]*models.Campaign)}
}

func (r *stubCampaignRepo) add(c *models.Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		c.ID = uint(len(r.campaigns) + 1)
	}
	cp := *c
	r.campaigns[c.ID] = &cp
}

func (r *stubCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *stubCampaignRepo) ListByStatuses(ctx context.Context, statuses []models.CampaignStatus) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		for _, s := range statuses {
			if c.Status == s {
				cp := *c
				out = append(out, &cp)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubCampaignRepo) UpdateStatus(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *stubCampaignRepo) status(id uint) models.CampaignStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		return c.Status
	}
	return ""
}

type stubQueueRepo struct {
	repository.QueueEntryRepository
	mu      sync.Mutex
	entries map[uint]*models.QueueEntry
}

func newStubQueueRepo() *stubQueueRepo {
	return &stubQueueRepo{entries: make(map[uint]*models.QueueEntry)}
}

func (r *stubQueueRepo) add(e *models.QueueEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == 0 {
		e.ID = uint(len(r.entries) + 1)
	}
	cp := *e
	r.entries[e.ID] = &cp
}

func (r *stubQueueRepo) ByID(ctx context.Context, id uint) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (r *stubQueueRepo) CountNonTerminalByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.CampaignID == campaignID && !e.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (r *stubQueueRepo) CancelPendingByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.CampaignID == campaignID && e.Status == models.QueueEntryStatusPending {
			e.Status = models.QueueEntryStatusCancelled
			n++
		}
	}
	return n, nil
}

func (r *stubQueueRepo) ReturnToPending(ctx context.Context, id uint, attemptCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return errors.New("entry not found")
	}
	e.Status = models.QueueEntryStatusPending
	e.AttemptCount = attemptCount
	return nil
}

func (r *stubQueueRepo) MarkTerminal(ctx context.Context, id uint, status models.QueueEntryStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.QueueEntryStatusProcessing {
		return false, nil
	}
	e.Status = status
	return true, nil
}

func (r *stubQueueRepo) ListStuckProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QueueEntry
	for _, e := range r.entries {
		if e.Status != models.QueueEntryStatusProcessing {
			continue
		}
		updated := e.CreatedAt
		if e.UpdatedAt != nil {
			updated = *e.UpdatedAt
		}
		if updated.Before(olderThan) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubQueueRepo) status(id uint) models.QueueEntryStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.Status
	}
	return ""
}

type stubCallRepo struct {
	repository.CallRepository
	mu    sync.Mutex
	calls map[uint]*models.Call
}

func newStubCallRepo() *stubCallRepo {
	return &stubCallRepo{calls: make(map[uint]*models.Call)}
}

func (r *stubCallRepo) add(c *models.Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		c.ID = uint(len(r.calls) + 1)
	}
	cp := *c
	r.calls[c.ID] = &cp
}

func (r *stubCallRepo) CountInFlight(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.calls {
		if c.LifecycleStatus.InFlight() {
			n++
		}
	}
	return n, nil
}

func (r *stubCallRepo) ByQueueEntryID(ctx context.Context, queueEntryID uint) (*models.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.QueueEntryID != nil && *c.QueueEntryID == queueEntryID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *stubCallRepo) AdvanceLifecycle(ctx context.Context, id uint, from, to models.CallLifecycleStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.LifecycleStatus != from {
		return false, nil
	}
	c.LifecycleStatus = to
	return true, nil
}

func (r *stubCallRepo) MarkPostProcessed(ctx context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.PostProcessedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	c.PostProcessedAt = &now
	return true, nil
}

func (r *stubCallRepo) ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Call
	for _, c := range r.calls {
		if c.LifecycleStatus.Terminal() {
			continue
		}
		updated := c.CreatedAt
		if c.UpdatedAt != nil {
			updated = *c.UpdatedAt
		}
		if updated.Before(olderThan) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubCallRepo) get(id uint) *models.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// stubDispatch feeds scripted pass results to the scheduler loop
type stubDispatch struct {
	mu      sync.Mutex
	results []int
	passes  int
}

func (d *stubDispatch) RunPass(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.passes++
	if len(d.results) == 0 {
		return 0, nil
	}
	n := d.results[0]
	d.results = d.results[1:]
	return n, nil
}

// stubAlerts captures alert invocations
type stubAlerts struct {
	mu           sync.Mutex
	stuckCalls   []int
	stuckEntries map[uint]int
}

func newStubAlerts() *stubAlerts {
	return &stubAlerts{stuckEntries: make(map[uint]int)}
}

func (a *stubAlerts) AlertUnknownCorrelation(correlationID string, status string) {}

func (a *stubAlerts) AlertStuckEntries(campaignID uint, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stuckEntries[campaignID] += count
}

func (a *stubAlerts) AlertStuckCalls(count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stuckCalls = append(a.stuckCalls, count)
}

func (a *stubAlerts) AlertWalletDebitFailure(customerID uint, callID uint, err error) {}
