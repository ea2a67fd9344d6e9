package repository

import (
	"context"
	"errors"

	"github.com/callpilot/callpilot/models"
	"gorm.io/gorm"
)

// CallTranscriptRepositoryImpl implements CallTranscriptRepository
type CallTranscriptRepositoryImpl struct {
	*BaseRepository[models.CallTranscript, models.CallTranscriptFilter]
}

func NewCallTranscriptRepository(db *gorm.DB) CallTranscriptRepository {
	return &CallTranscriptRepositoryImpl{BaseRepository: NewBaseRepository[models.CallTranscript, models.CallTranscriptFilter](db)}
}

func (r *CallTranscriptRepositoryImpl) ByCallID(ctx context.Context, callID uint) (*models.CallTranscript, error) {
	db := r.getDB(ctx)
	var transcript models.CallTranscript
	err := db.Where("call_id = ?", callID).Last(&transcript).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transcript, nil
}

func (r *CallTranscriptRepositoryImpl) applyFilter(db *gorm.DB, f models.CallTranscriptFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CallID != nil {
		db = db.Where("call_id = ?", *f.CallID)
	}
	return db
}

func (r *CallTranscriptRepositoryImpl) ByFilter(ctx context.Context, filter models.CallTranscriptFilter, orderBy string, limit, offset int) ([]*models.CallTranscript, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CallTranscript{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var transcripts []*models.CallTranscript
	if err := query.Find(&transcripts).Error; err != nil {
		return nil, err
	}
	return transcripts, nil
}

func (r *CallTranscriptRepositoryImpl) Count(ctx context.Context, filter models.CallTranscriptFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.CallTranscript{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *CallTranscriptRepositoryImpl) Exists(ctx context.Context, filter models.CallTranscriptFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
