package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a customer's prepaid balance. Call billing deducts from it
// exactly once per completed call.
type Wallet struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_wallets_uuid" json:"uuid"`
	CustomerID   uint       `gorm:"not null;uniqueIndex:uk_wallets_customer_id" json:"customer_id"`
	BalanceCents int64      `gorm:"not null;default:0" json:"balance_cents"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`

	// Relations
	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

// TableName returns the table name for the model
func (Wallet) TableName() string {
	return "wallets"
}

// BeforeCreate is called before creating a new record
func (w *Wallet) BeforeCreate() error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	return nil
}

// WalletFilter represents filter criteria for wallets
type WalletFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CustomerID *uint      `json:"customer_id,omitempty"`
}

// WalletTransaction records one balance movement. CallID carries a unique
// index so a call can be billed at most once even if post-processing races.
type WalletTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WalletID    uint      `gorm:"not null;index:idx_wallet_transactions_wallet_id" json:"wallet_id"`
	CallID      *uint     `gorm:"uniqueIndex:uk_wallet_transactions_call_id" json:"call_id,omitempty"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Reason      string    `gorm:"type:varchar(64);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	Wallet *Wallet `gorm:"foreignKey:WalletID;references:ID" json:"wallet,omitempty"`
}

// TableName returns the table name for the model
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}

// WalletTransactionFilter represents filter criteria for wallet transactions
type WalletTransactionFilter struct {
	ID       *uint `json:"id,omitempty"`
	WalletID *uint `json:"wallet_id,omitempty"`
	CallID   *uint `json:"call_id,omitempty"`
}
