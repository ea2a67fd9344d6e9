package repository

import (
	"context"
	"time"

	"github.com/callpilot/callpilot/models"
	"github.com/callpilot/callpilot/utils"
	"gorm.io/gorm"
)

// QueueEntryRepositoryImpl implements QueueEntryRepository
type QueueEntryRepositoryImpl struct {
	*BaseRepository[models.QueueEntry, models.QueueEntryFilter]
}

func NewQueueEntryRepository(db *gorm.DB) QueueEntryRepository {
	return &QueueEntryRepositoryImpl{BaseRepository: NewBaseRepository[models.QueueEntry, models.QueueEntryFilter](db)}
}

func (r *QueueEntryRepositoryImpl) ListPendingByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.QueueEntry, error) {
	db := r.getDB(ctx)
	var entries []*models.QueueEntry
	query := db.Where("campaign_id = ? AND status = ?", campaignID, models.QueueEntryStatusPending).
		Order("position ASC, id ASC").
		Preload("Contact")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkProcessing claims a pending entry. The status guard in the WHERE clause
// is what makes concurrent claims race-safe: only one caller sees
// RowsAffected == 1.
func (r *QueueEntryRepositoryImpl) MarkProcessing(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", id, models.QueueEntryStatusPending).
		Updates(map[string]any{
			"status":     models.QueueEntryStatusProcessing,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *QueueEntryRepositoryImpl) MarkTerminal(ctx context.Context, id uint, status models.QueueEntryStatus) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", id, models.QueueEntryStatusProcessing).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *QueueEntryRepositoryImpl) ReturnToPending(ctx context.Context, id uint, attemptCount int) error {
	db := r.getDB(ctx)
	return db.Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", id, models.QueueEntryStatusProcessing).
		Updates(map[string]any{
			"status":        models.QueueEntryStatusPending,
			"attempt_count": attemptCount,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// CancelPendingByCampaign cancels pending entries only; processing entries
// run to their natural terminal webhook.
func (r *QueueEntryRepositoryImpl) CancelPendingByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.QueueEntry{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.QueueEntryStatusPending).
		Updates(map[string]any{
			"status":     models.QueueEntryStatusCancelled,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *QueueEntryRepositoryImpl) CountNonTerminalByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.QueueEntry{}).
		Where("campaign_id = ? AND status IN ?", campaignID,
			[]models.QueueEntryStatus{models.QueueEntryStatusPending, models.QueueEntryStatusProcessing}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *QueueEntryRepositoryImpl) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	return r.Count(ctx, models.QueueEntryFilter{CampaignID: &campaignID})
}

func (r *QueueEntryRepositoryImpl) StatsByCampaign(ctx context.Context, campaignID uint) (map[models.QueueEntryStatus]int64, error) {
	db := r.getDB(ctx)
	var rows []struct {
		Status models.QueueEntryStatus
		Total  int64
	}
	err := db.Model(&models.QueueEntry{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[models.QueueEntryStatus]int64, len(rows))
	for _, row := range rows {
		stats[row.Status] = row.Total
	}
	return stats, nil
}

func (r *QueueEntryRepositoryImpl) ListStuckProcessing(ctx context.Context, olderThan time.Time, limit int) ([]*models.QueueEntry, error) {
	db := r.getDB(ctx)
	var entries []*models.QueueEntry
	query := db.Where("status = ? AND updated_at < ?", models.QueueEntryStatusProcessing, olderThan).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QueueEntryRepositoryImpl) MaxPositionByCampaign(ctx context.Context, campaignID uint) (int, error) {
	db := r.getDB(ctx)
	var max *int
	err := db.Model(&models.QueueEntry{}).
		Select("MAX(position)").
		Where("campaign_id = ?", campaignID).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *QueueEntryRepositoryImpl) applyFilter(db *gorm.DB, f models.QueueEntryFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.ContactID != nil {
		db = db.Where("contact_id = ?", *f.ContactID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *QueueEntryRepositoryImpl) ByFilter(ctx context.Context, filter models.QueueEntryFilter, orderBy string, limit, offset int) ([]*models.QueueEntry, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QueueEntry{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var entries []*models.QueueEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QueueEntryRepositoryImpl) Count(ctx context.Context, filter models.QueueEntryFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.QueueEntry{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *QueueEntryRepositoryImpl) Exists(ctx context.Context, filter models.QueueEntryFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
