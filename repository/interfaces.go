// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/callpilot/callpilot/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
}

// AgentRepository defines operations for calling agents
type AgentRepository interface {
	Repository[models.Agent, models.AgentFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Agent, error)
	ListByCustomer(ctx context.Context, customerID uint) ([]*models.Agent, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ListByStatuses(ctx context.Context, statuses []models.CampaignStatus) ([]*models.Campaign, error)
	// UpdateStatus transitions from -> to with a conditional update; returns
	// false when another writer moved the campaign first.
	UpdateStatus(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error)
	Update(ctx context.Context, campaign *models.Campaign) error
}

// ContactRepository defines operations for campaign contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.Contact, error)
	CountByCampaign(ctx context.Context, campaignID uint) (int64, error)
	MaxPositionByCampaign(ctx context.Context, campaignID uint) (int, error)
}

// QueueEntryRepository defines operations for the per-campaign call queue.
// Claiming and terminal marking use conditional updates so concurrent callers
// (multiple dispatch passes, webhook processing, reconciliation) are race-safe.
type QueueEntryRepository interface {
	Repository[models.QueueEntry, models.QueueEntryFilter]
	ListPendingByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.QueueEntry, error)
	// MarkProcessing claims a pending entry; returns false when the entry was
	// no longer pending (lost race).
	MarkProcessing(ctx context.Context, id uint) (bool, error)
	// MarkTerminal finishes a processing entry; returns false when the entry
	// was not processing.
	MarkTerminal(ctx context.Context, id uint, status models.QueueEntryStatus) (bool, error)
	// ReturnToPending releases a claimed entry after a failed placement,
	// recording the attempt.
	ReturnToPending(ctx context.Context, id uint, attemptCount int) error
	CancelPendingByCampaign(ctx context.Context, campaignID uint) (int64, error)
	CountNonTerminalByCampaign(ctx context.Context, campaignID uint) (int64, error)
	CountByCampaign(ctx context.Context, campaignID uint) (int64, error)
	StatsByCampaign(ctx context.Context, campaignID uint) (map[models.QueueEntryStatus]int64, error)
	ListStuckProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.QueueEntry, error)
	MaxPositionByCampaign(ctx context.Context, campaignID uint) (int, error)
}

// CallRepository defines operations for calls. Concurrency counts are always
// derived live from lifecycle_status, never cached.
type CallRepository interface {
	Repository[models.Call, models.CallFilter]
	ByCorrelationID(ctx context.Context, correlationID string) (*models.Call, error)
	ByQueueEntryID(ctx context.Context, queueEntryID uint) (*models.Call, error)
	CountInFlight(ctx context.Context) (int64, error)
	CountInFlightByCustomer(ctx context.Context, customerID uint) (int64, error)
	CountInFlightByCampaign(ctx context.Context, campaignID uint) (int64, error)
	CountDistinctInFlightCustomers(ctx context.Context) (int64, error)
	// AdvanceLifecycle applies a forward transition with a conditional update;
	// returns false when a concurrent writer moved the call first.
	AdvanceLifecycle(ctx context.Context, id uint, from, to models.CallLifecycleStatus) (bool, error)
	// MarkPostProcessed claims the exactly-once post-processing slot; returns
	// false when the call was already post-processed.
	MarkPostProcessed(ctx context.Context, id uint) (bool, error)
	Update(ctx context.Context, call *models.Call) error
	// ListStuck returns non-terminal calls not updated since olderThan, for
	// the reconciliation sweep.
	ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Call, error)
}

// CallTranscriptRepository defines operations for call transcripts
type CallTranscriptRepository interface {
	Repository[models.CallTranscript, models.CallTranscriptFilter]
	ByCallID(ctx context.Context, callID uint) (*models.CallTranscript, error)
}

// WalletRepository defines operations for customer wallets
type WalletRepository interface {
	Repository[models.Wallet, models.WalletFilter]
	ByCustomerID(ctx context.Context, customerID uint) (*models.Wallet, error)
	// DebitForCall deducts amountCents and records a transaction tied to the
	// call; the unique call_id index makes double billing impossible.
	DebitForCall(ctx context.Context, walletID, callID uint, amountCents int64, reason string) error
	ListTransactions(ctx context.Context, walletID uint, limit, offset int) ([]*models.WalletTransaction, error)
}

// LeadInsightRepository defines operations for lead insights
type LeadInsightRepository interface {
	Repository[models.LeadInsight, models.LeadInsightFilter]
	ByCallID(ctx context.Context, callID uint) (*models.LeadInsight, error)
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.LeadInsight, error)
}
