package businessflow

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/callpilot/callpilot/models"
)

// In-memory repository fakes. Conditional updates mirror the SQL semantics:
// claims and lifecycle advances succeed only when the stored row still holds
// the expected state.

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[uint]*models.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uint]*models.Customer)}
}

func (r *fakeCustomerRepo) ByID(ctx context.Context, id uint) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByFilter(ctx context.Context, filter models.CustomerFilter, orderBy string, limit, offset int) ([]*models.Customer, error) {
	return nil, nil
}

func (r *fakeCustomerRepo) Save(ctx context.Context, entity *models.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.customers) + 1)
	}
	cp := *entity
	r.customers[entity.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) SaveBatch(ctx context.Context, entities []*models.Customer) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, filter models.CustomerFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.customers)), nil
}

func (r *fakeCustomerRepo) Exists(ctx context.Context, filter models.CustomerFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeCustomerRepo) ByUUID(ctx context.Context, uuid string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.UUID.String() == uuid {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCustomerRepo) ByEmail(ctx context.Context, email string) (*models.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeAgentRepo struct {
	mu     sync.Mutex
	agents map[uint]*models.Agent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[uint]*models.Agent)}
}

func (r *fakeAgentRepo) ByID(ctx context.Context, id uint) (*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeAgentRepo) ByFilter(ctx context.Context, filter models.AgentFilter, orderBy string, limit, offset int) ([]*models.Agent, error) {
	return nil, nil
}

func (r *fakeAgentRepo) Save(ctx context.Context, entity *models.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.agents) + 1)
	}
	cp := *entity
	r.agents[entity.ID] = &cp
	return nil
}

func (r *fakeAgentRepo) SaveBatch(ctx context.Context, entities []*models.Agent) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAgentRepo) Count(ctx context.Context, filter models.AgentFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.agents)), nil
}

func (r *fakeAgentRepo) Exists(ctx context.Context, filter models.AgentFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeAgentRepo) ByUUID(ctx context.Context, uuid string) (*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.agents {
		if a.UUID.String() == uuid {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAgentRepo) ListByCustomer(ctx context.Context, customerID uint) ([]*models.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Agent
	for _, a := range r.agents {
		if a.CustomerID == customerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[uint]*models.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: make(map[uint]*models.Campaign)}
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, entity *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.campaigns) + 1)
	}
	cp := *entity
	r.campaigns[entity.ID] = &cp
	return nil
}

func (r *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.Campaign) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.campaigns)), nil
}

func (r *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.UUID.String() == uuid {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ListByStatuses(ctx context.Context, statuses []models.CampaignStatus) ([]*models.Campaign, error) {
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

func (r *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *campaign
	r.campaigns[campaign.ID] = &cp
	return nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[uint]*models.QueueEntry

	// failMarkProcessing forces claim races: listed IDs refuse the claim once.
	failMarkProcessing map[uint]bool
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{
		entries:            make(map[uint]*models.QueueEntry),
		failMarkProcessing: make(map[uint]bool),
	}
}

func (r *fakeQueueRepo) ByID(ctx context.Context, id uint) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeQueueRepo) ByFilter(ctx context.Context, filter models.QueueEntryFilter, orderBy string, limit, offset int) ([]*models.QueueEntry, error) {
	return nil, nil
}

func (r *fakeQueueRepo) Save(ctx context.Context, entity *models.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.entries) + 1)
	}
	cp := *entity
	r.entries[entity.ID] = &cp
	return nil
}

func (r *fakeQueueRepo) SaveBatch(ctx context.Context, entities []*models.QueueEntry) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeQueueRepo) Count(ctx context.Context, filter models.QueueEntryFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeQueueRepo) Exists(ctx context.Context, filter models.QueueEntryFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeQueueRepo) ListPendingByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.QueueEntry
	for _, e := range r.entries {
		if e.CampaignID == campaignID && e.Status == models.QueueEntryStatusPending {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQueueRepo) MarkProcessing(ctx context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkProcessing[id] {
		delete(r.failMarkProcessing, id)
		return false, nil
	}
	e, ok := r.entries[id]
	if !ok || e.Status != models.QueueEntryStatusPending {
		return false, nil
	}
	e.Status = models.QueueEntryStatusProcessing
	return true, nil
}

func (r *fakeQueueRepo) MarkTerminal(ctx context.Context, id uint, status models.QueueEntryStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.QueueEntryStatusProcessing {
		return false, nil
	}
	e.Status = status
	return true, nil
}

func (r *fakeQueueRepo) ReturnToPending(ctx context.Context, id uint, attemptCount int) error {
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

func (r *fakeQueueRepo) CancelPendingByCampaign(ctx context.Context, campaignID uint) (int64, error) {
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

func (r *fakeQueueRepo) CountNonTerminalByCampaign(ctx context.Context, campaignID uint) (int64, error) {
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

func (r *fakeQueueRepo) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.entries {
		if e.CampaignID == campaignID {
			n++
		}
	}
	return n, nil
}

func (r *fakeQueueRepo) StatsByCampaign(ctx context.Context, campaignID uint) (map[models.QueueEntryStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := make(map[models.QueueEntryStatus]int64)
	for _, e := range r.entries {
		if e.CampaignID == campaignID {
			stats[e.Status]++
		}
	}
	return stats, nil
}

func (r *fakeQueueRepo) ListStuckProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.QueueEntry, error) {
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
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQueueRepo) MaxPositionByCampaign(ctx context.Context, campaignID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, e := range r.entries {
		if e.CampaignID == campaignID && e.Position > max {
			max = e.Position
		}
	}
	return max, nil
}

func (r *fakeQueueRepo) status(id uint) models.QueueEntryStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.Status
	}
	return ""
}

type fakeCallRepo struct {
	mu    sync.Mutex
	calls map[uint]*models.Call
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[uint]*models.Call)}
}

func (r *fakeCallRepo) ByID(ctx context.Context, id uint) (*models.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeCallRepo) ByFilter(ctx context.Context, filter models.CallFilter, orderBy string, limit, offset int) ([]*models.Call, error) {
	return nil, nil
}

func (r *fakeCallRepo) Save(ctx context.Context, entity *models.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.calls) + 1)
	}
	cp := *entity
	r.calls[entity.ID] = &cp
	return nil
}

func (r *fakeCallRepo) SaveBatch(ctx context.Context, entities []*models.Call) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeCallRepo) Count(ctx context.Context, filter models.CallFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.calls)), nil
}

func (r *fakeCallRepo) Exists(ctx context.Context, filter models.CallFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeCallRepo) ByCorrelationID(ctx context.Context, correlationID string) (*models.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.CorrelationID == correlationID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeCallRepo) ByQueueEntryID(ctx context.Context, queueEntryID uint) (*models.Call, error) {
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

func (r *fakeCallRepo) CountInFlight(ctx context.Context) (int64, error) {
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

func (r *fakeCallRepo) CountInFlightByCustomer(ctx context.Context, customerID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.calls {
		if c.CustomerID == customerID && c.LifecycleStatus.InFlight() {
			n++
		}
	}
	return n, nil
}

func (r *fakeCallRepo) CountInFlightByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.calls {
		if c.CampaignID == campaignID && c.LifecycleStatus.InFlight() {
			n++
		}
	}
	return n, nil
}

func (r *fakeCallRepo) CountDistinctInFlightCustomers(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uint]bool)
	for _, c := range r.calls {
		if c.LifecycleStatus.InFlight() {
			seen[c.CustomerID] = true
		}
	}
	return int64(len(seen)), nil
}

func (r *fakeCallRepo) AdvanceLifecycle(ctx context.Context, id uint, from, to models.CallLifecycleStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok || c.LifecycleStatus != from {
		return false, nil
	}
	c.LifecycleStatus = to
	now := time.Now().UTC()
	c.UpdatedAt = &now
	return true, nil
}

func (r *fakeCallRepo) MarkPostProcessed(ctx context.Context, id uint) (bool, error) {
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

func (r *fakeCallRepo) Update(ctx context.Context, call *models.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.calls[call.ID]
	if !ok {
		return errors.New("call not found")
	}
	// Lifecycle status is owned by AdvanceLifecycle; Update persists payload.
	status := existing.LifecycleStatus
	post := existing.PostProcessedAt
	cp := *call
	cp.LifecycleStatus = status
	cp.PostProcessedAt = post
	r.calls[call.ID] = &cp
	return nil
}

func (r *fakeCallRepo) ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Call, error) {
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

func (r *fakeCallRepo) get(id uint) *models.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (r *fakeCallRepo) all() []*models.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Call
	for _, c := range r.calls {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeTranscriptRepo struct {
	mu          sync.Mutex
	transcripts map[uint]*models.CallTranscript // keyed by call ID
}

func newFakeTranscriptRepo() *fakeTranscriptRepo {
	return &fakeTranscriptRepo{transcripts: make(map[uint]*models.CallTranscript)}
}

func (r *fakeTranscriptRepo) ByID(ctx context.Context, id uint) (*models.CallTranscript, error) {
	return nil, nil
}

func (r *fakeTranscriptRepo) ByFilter(ctx context.Context, filter models.CallTranscriptFilter, orderBy string, limit, offset int) ([]*models.CallTranscript, error) {
	return nil, nil
}

func (r *fakeTranscriptRepo) Save(ctx context.Context, entity *models.CallTranscript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transcripts[entity.CallID]; exists {
		return errors.New("duplicate transcript for call")
	}
	if entity.ID == 0 {
		entity.ID = uint(len(r.transcripts) + 1)
	}
	cp := *entity
	r.transcripts[entity.CallID] = &cp
	return nil
}

func (r *fakeTranscriptRepo) SaveBatch(ctx context.Context, entities []*models.CallTranscript) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTranscriptRepo) Count(ctx context.Context, filter models.CallTranscriptFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.transcripts)), nil
}

func (r *fakeTranscriptRepo) Exists(ctx context.Context, filter models.CallTranscriptFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeTranscriptRepo) ByCallID(ctx context.Context, callID uint) (*models.CallTranscript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.transcripts[callID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

type fakeWalletRepo struct {
	mu           sync.Mutex
	wallets      map[uint]*models.Wallet // keyed by customer ID
	transactions []*models.WalletTransaction
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[uint]*models.Wallet)}
}

func (r *fakeWalletRepo) ByID(ctx context.Context, id uint) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.ID == id {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeWalletRepo) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	return nil, nil
}

func (r *fakeWalletRepo) Save(ctx context.Context, entity *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = uint(len(r.wallets) + 1)
	}
	cp := *entity
	r.wallets[entity.CustomerID] = &cp
	return nil
}

func (r *fakeWalletRepo) SaveBatch(ctx context.Context, entities []*models.Wallet) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeWalletRepo) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.wallets)), nil
}

func (r *fakeWalletRepo) Exists(ctx context.Context, filter models.WalletFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeWalletRepo) ByCustomerID(ctx context.Context, customerID uint) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.wallets[customerID]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeWalletRepo) DebitForCall(ctx context.Context, walletID, callID uint, amountCents int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.transactions {
		if tx.CallID != nil && *tx.CallID == callID {
			return errors.New("duplicate wallet transaction for call")
		}
	}
	for _, w := range r.wallets {
		if w.ID == walletID {
			w.BalanceCents -= amountCents
			id := callID
			r.transactions = append(r.transactions, &models.WalletTransaction{
				ID:          uint(len(r.transactions) + 1),
				WalletID:    walletID,
				CallID:      &id,
				AmountCents: -amountCents,
				Reason:      reason,
				CreatedAt:   time.Now().UTC(),
			})
			return nil
		}
	}
	return errors.New("wallet not found")
}

func (r *fakeWalletRepo) ListTransactions(ctx context.Context, walletID uint, limit, offset int) ([]*models.WalletTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.WalletTransaction
	for _, tx := range r.transactions {
		if tx.WalletID == walletID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeInsightRepo struct {
	mu       sync.Mutex
	insights map[uint]*models.LeadInsight // keyed by call ID
}

func newFakeInsightRepo() *fakeInsightRepo {
	return &fakeInsightRepo{insights: make(map[uint]*models.LeadInsight)}
}

func (r *fakeInsightRepo) ByID(ctx context.Context, id uint) (*models.LeadInsight, error) {
	return nil, nil
}

func (r *fakeInsightRepo) ByFilter(ctx context.Context, filter models.LeadInsightFilter, orderBy string, limit, offset int) ([]*models.LeadInsight, error) {
	return nil, nil
}

func (r *fakeInsightRepo) Save(ctx context.Context, entity *models.LeadInsight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.insights[entity.CallID]; exists {
		return errors.New("duplicate insight for call")
	}
	if entity.ID == 0 {
		entity.ID = uint(len(r.insights) + 1)
	}
	cp := *entity
	r.insights[entity.CallID] = &cp
	return nil
}

func (r *fakeInsightRepo) SaveBatch(ctx context.Context, entities []*models.LeadInsight) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeInsightRepo) Count(ctx context.Context, filter models.LeadInsightFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.insights)), nil
}

func (r *fakeInsightRepo) Exists(ctx context.Context, filter models.LeadInsightFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeInsightRepo) ByCallID(ctx context.Context, callID uint) (*models.LeadInsight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.insights[callID]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeInsightRepo) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.LeadInsight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.LeadInsight
	for _, i := range r.insights {
		if i.CampaignID == campaignID {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

// countingNotifier records scheduler wakes
type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

// recordingAlerts captures alert service invocations
type recordingAlerts struct {
	mu                  sync.Mutex
	unknownCorrelations []string
	debitFailures       []uint
	stuckCallCounts     []int
	stuckEntryCounts    []int
}

func (a *recordingAlerts) AlertUnknownCorrelation(correlationID string, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unknownCorrelations = append(a.unknownCorrelations, correlationID)
}

func (a *recordingAlerts) AlertStuckEntries(campaignID uint, count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stuckEntryCounts = append(a.stuckEntryCounts, count)
}

func (a *recordingAlerts) AlertStuckCalls(count int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stuckCallCounts = append(a.stuckCallCounts, count)
}

func (a *recordingAlerts) AlertWalletDebitFailure(customerID uint, callID uint, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.debitFailures = append(a.debitFailures, callID)
}
