package repository

import (
	"context"
	"errors"

	"github.com/amirphl/Yatagarasu/models"
	"gorm.io/gorm"
)

// DispatchRunRepositoryImpl implements DispatchRunRepository
type DispatchRunRepositoryImpl struct {
	*BaseRepository[models.DispatchRun, models.DispatchRunFilter]
}

func NewDispatchRunRepository(db *gorm.DB) DispatchRunRepository {
	return &DispatchRunRepositoryImpl{BaseRepository: NewBaseRepository[models.DispatchRun, models.DispatchRunFilter](db)}
}

func (r *DispatchRunRepositoryImpl) ByID(ctx context.Context, id uint) (*models.DispatchRun, error) {
	db := r.getDB(ctx)
	var row models.DispatchRun
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ByCampaignID retrieves the most recent run for a campaign
func (r *DispatchRunRepositoryImpl) ByCampaignID(ctx context.Context, campaignID uint) (*models.DispatchRun, error) {
	rows, err := r.ByFilter(ctx, models.DispatchRunFilter{CampaignID: &campaignID}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *DispatchRunRepositoryImpl) applyFilter(db *gorm.DB, f models.DispatchRunFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.CampaignID != nil {
		db = db.Where("campaign_id = ?", *f.CampaignID)
	}
	if f.Source != nil {
		db = db.Where("source = ?", *f.Source)
	}
	if f.Forced != nil {
		db = db.Where("forced = ?", *f.Forced)
	}
	if f.StartedAfter != nil {
		db = db.Where("started_at >= ?", *f.StartedAfter)
	}
	if f.StartedBefore != nil {
		db = db.Where("started_at < ?", *f.StartedBefore)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *DispatchRunRepositoryImpl) ByFilter(ctx context.Context, filter models.DispatchRunFilter, orderBy string, limit, offset int) ([]*models.DispatchRun, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DispatchRun{}), filter)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*models.DispatchRun
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *DispatchRunRepositoryImpl) Count(ctx context.Context, filter models.DispatchRunFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DispatchRun{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DispatchRunRepositoryImpl) Exists(ctx context.Context, filter models.DispatchRunFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}

// Update persists the run's counters after the dispatch loop finishes
func (r *DispatchRunRepositoryImpl) Update(ctx context.Context, run *models.DispatchRun) error {
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
	return db.Save(run).Error
}
