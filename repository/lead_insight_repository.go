package repository

import (
	"context"
	"errors"

	"github.com/callpilot/callpilot/models"
	"gorm.io/gorm"
)

// LeadInsightRepositoryImpl implements LeadInsightRepository
type LeadInsightRepositoryImpl struct {
	*BaseRepository[models.LeadInsight, models.LeadInsightFilter]
}

func NewLeadInsightRepository(db *gorm.DB) LeadInsightRepository {
	return &LeadInsightRepositoryImpl{BaseRepository: NewBaseRepository[models.LeadInsight, models.LeadInsightFilter](db)}
}

func (r *LeadInsightRepositoryImpl) ByCallID(ctx context.Context, callID uint) (*models.LeadInsight, error) {
	db := r.getDB(ctx)
	var insight models.LeadInsight
	err := db.Where("call_id = ?", callID).Last(&insight).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &insight, nil
}

func (r *LeadInsightRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.LeadInsight, error) {
	filter := models.LeadInsightFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "id DESC", limit, offset)
}

func (r *LeadInsightRepositoryImpl) applyFilter(db *gorm.DB, f models.LeadInsightFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CallID != nil {
		db = db.Where("call_id = ?", *f.CallID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.Sentiment != nil {
		db = db.Where("sentiment = ?", *f.Sentiment)
	}
	return db
}

func (r *LeadInsightRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadInsightFilter, orderBy string, limit, offset int) ([]*models.LeadInsight, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.LeadInsight{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var insights []*models.LeadInsight
	if err := query.Find(&insights).Error; err != nil {
		return nil, err
	}
	return insights, nil
}

func (r *LeadInsightRepositoryImpl) Count(ctx context.Context, filter models.LeadInsightFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.LeadInsight{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LeadInsightRepositoryImpl) Exists(ctx context.Context, filter models.LeadInsightFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
