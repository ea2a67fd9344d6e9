package repository

import (
	"context"
	"errors"

	"github.com/callpilot/callpilot/models"
	"gorm.io/gorm"
)

// AgentRepositoryImpl implements AgentRepository
type AgentRepositoryImpl struct {
	*BaseRepository[models.Agent, models.AgentFilter]
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &AgentRepositoryImpl{BaseRepository: NewBaseRepository[models.Agent, models.AgentFilter](db)}
}

func (r *AgentRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Agent, error) {
	db := r.getDB(ctx)
	var agent models.Agent
	err := db.Where("uuid = ?", uuid).Last(&agent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepositoryImpl) ListByCustomer(ctx context.Context, customerID uint) ([]*models.Agent, error) {
	filter := models.AgentFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

func (r *AgentRepositoryImpl) applyFilter(db *gorm.DB, f models.AgentFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	return db
}

func (r *AgentRepositoryImpl) ByFilter(ctx context.Context, filter models.AgentFilter, orderBy string, limit, offset int) ([]*models.Agent, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Agent{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var agents []*models.Agent
	if err := query.Find(&agents).Error; err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *AgentRepositoryImpl) Count(ctx context.Context, filter models.AgentFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Agent{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *AgentRepositoryImpl) Exists(ctx context.Context, filter models.AgentFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
