package repository

import (
	"context"
	"errors"
	"time"

	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/utils"
	"gorm.io/gorm"
)

var inFlightStatuses = []models.CallLifecycleStatus{
	models.CallStatusInitiated,
	models.CallStatusRinging,
	models.CallStatusInProgress,
}

// CallRepositoryImpl implements CallRepository
type CallRepositoryImpl struct {
	*BaseRepository[models.Call, models.CallFilter]
}

func NewCallRepository(db *gorm.DB) CallRepository {
	return &CallRepositoryImpl{BaseRepository: NewBaseRepository[models.Call, models.CallFilter](db)}
}

func (r *CallRepositoryImpl) ByCorrelationID(ctx context.Context, correlationID string) (*models.Call, error) {
	db := r.getDB(ctx)
	var call models.Call
	err := db.Where("correlation_id = ?", correlationID).Last(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}

func (r *CallRepositoryImpl) ByQueueEntryID(ctx context.Context, queueEntryID uint) (*models.Call, error) {
	db := r.getDB(ctx)
	var call models.Call
	err := db.Where("queue_entry_id = ?", queueEntryID).Last(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}

func (r *CallRepositoryImpl) CountInFlight(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Call{}).
		Where("lifecycle_status IN ?", inFlightStatuses).
		Count(&count).Error
	return count, err
}

func (r *CallRepositoryImpl) CountInFlightByCustomer(ctx context.Context, customerID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Call{}).
		Where("customer_id = ? AND lifecycle_status IN ?", customerID, inFlightStatuses).
		Count(&count).Error
	return count, err
}

func (r *CallRepositoryImpl) CountInFlightByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Call{}).
		Where("campaign_id = ? AND lifecycle_status IN ?", campaignID, inFlightStatuses).
		Count(&count).Error
	return count, err
}

func (r *CallRepositoryImpl) CountDistinctInFlightCustomers(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Call{}).
		Distinct("customer_id").
		Where("lifecycle_status IN ?", inFlightStatuses).
		Count(&count).Error
	return count, err
}

// AdvanceLifecycle moves a call forward. The status guard rejects concurrent
// or out-of-order writers; callers check CanTransitionTo beforehand, this
// guard closes the remaining race window.
func (r *CallRepositoryImpl) AdvanceLifecycle(ctx context.Context, id uint, from, to models.CallLifecycleStatus) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Call{}).
		Where("id = ? AND lifecycle_status = ?", id, from).
		Updates(map[string]any{
			"lifecycle_status": to,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CallRepositoryImpl) MarkPostProcessed(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.Call{}).
		Where("id = ? AND post_processed_at IS NULL", id).
		Update("post_processed_at", utils.UTCNow())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *CallRepositoryImpl) Update(ctx context.Context, call *models.Call) error {
	db := r.getDB(ctx)
	call.UpdatedAt = utils.UTCNowPtr()
	return db.Save(call).Error
}

func (r *CallRepositoryImpl) ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]*models.Call, error) {
	db := r.getDB(ctx)
	var calls []*models.Call
	query := db.Where("lifecycle_status IN ? AND COALESCE(updated_at, created_at) < ?",
		[]models.CallLifecycleStatus{
			models.CallStatusInitiated,
			models.CallStatusRinging,
			models.CallStatusInProgress,
			models.CallStatusDisconnected,
		}, olderThan).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&calls).Error; err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *CallRepositoryImpl) applyFilter(db *gorm.DB, f models.CallFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.QueueEntryID != nil {
		db = db.Where("queue_entry_id = ?", *f.QueueEntryID)
	}
	if f.CorrelationID != nil {
		db = db.Where("correlation_id = ?", *f.CorrelationID)
	}
	if f.LifecycleStatus != nil {
		db = db.Where("lifecycle_status = ?", *f.LifecycleStatus)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *CallRepositoryImpl) ByFilter(ctx context.Context, filter models.CallFilter, orderBy string, limit, offset int) ([]*models.Call, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Call{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var calls []*models.Call
	if err := query.Find(&calls).Error; err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *CallRepositoryImpl) Count(ctx context.Context, filter models.CallFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Call{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CallRepositoryImpl) Exists(ctx context.Context, filter models.CallFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
