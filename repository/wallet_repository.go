package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/utils"
	"gorm.io/gorm"
)

// WalletRepositoryImpl implements WalletRepository
type WalletRepositoryImpl struct {
	*BaseRepository[models.Wallet, models.WalletFilter]
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &WalletRepositoryImpl{BaseRepository: NewBaseRepository[models.Wallet, models.WalletFilter](db)}
}

func (r *WalletRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint) (*models.Wallet, error) {
	db := r.getDB(ctx)
	var wallet models.Wallet
	err := db.Where("customer_id = ?", customerID).Last(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}

// DebitForCall inserts the per-call transaction and decrements the balance in
// one transaction. The unique index on wallet_transactions.call_id rejects a
// second billing attempt for the same call.
func (r *WalletRepositoryImpl) DebitForCall(ctx context.Context, walletID, callID uint, amountCents int64, reason string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	txn := &models.WalletTransaction{
		WalletID:    walletID,
		CallID:      &callID,
		AmountCents: -amountCents,
		Reason:      reason,
		CreatedAt:   utils.UTCNow(),
	}
	if err = db.Create(txn).Error; err != nil {
		err = fmt.Errorf("failed to record wallet transaction for call %d: %w", callID, err)
		return err
	}

	err = db.Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Updates(map[string]any{
			"balance_cents": gorm.Expr("balance_cents - ?", amountCents),
			"updated_at":    utils.UTCNow(),
		}).Error
	if err != nil {
		err = fmt.Errorf("failed to debit wallet %d: %w", walletID, err)
	}
	return err
}

func (r *WalletRepositoryImpl) ListTransactions(ctx context.Context, walletID uint, limit, offset int) ([]*models.WalletTransaction, error) {
	db := r.getDB(ctx)
	var txns []*models.WalletTransaction
	query := db.Where("wallet_id = ?", walletID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *WalletRepositoryImpl) applyFilter(db *gorm.DB, f models.WalletFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	return db
}

func (r *WalletRepositoryImpl) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Wallet{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var wallets []*models.Wallet
	if err := query.Find(&wallets).Error; err != nil {
		return nil, err
	}
	return wallets, nil
}

func (r *WalletRepositoryImpl) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Wallet{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WalletRepositoryImpl) Exists(ctx context.Context, filter models.WalletFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
