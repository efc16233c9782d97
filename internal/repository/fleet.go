package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
)

// FleetRepository 舰队仓储接口
type FleetRepository interface {
	BaseRepository
	Create(ctx context.Context, fleet *models.Fleet) error
	FindByID(ctx context.Context, id uint) (*models.Fleet, error)
	FindByKey(ctx context.Context, key string) (*models.Fleet, error)
	FindArriving(ctx context.Context, deadline time.Time) ([]*models.Fleet, error)
	NextArrivalTime(ctx context.Context) (*time.Time, error)
	Save(ctx context.Context, fleet *models.Fleet) error
	MoveToStar(ctx context.Context, fleet *models.Fleet, starID uint) error
}

// fleetRepo 舰队仓储实现
type fleetRepo struct {
	*BaseRepo
}

// NewFleetRepository 创建舰队仓储
func NewFleetRepository(db *gorm.DB) FleetRepository {
	return &fleetRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建舰队
func (r *fleetRepo) Create(ctx context.Context, fleet *models.Fleet) error {
	return r.db.WithContext(ctx).Create(fleet).Error
}

// FindByID 根据ID查找舰队
func (r *fleetRepo) FindByID(ctx context.Context, id uint) (*models.Fleet, error) {
	var fleet models.Fleet
	err := r.db.WithContext(ctx).First(&fleet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrFleetNotFound, "舰队不存在: %d", id)
		}
		return nil, err
	}
	return &fleet, nil
}

// FindByKey 根据Key查找舰队
func (r *fleetRepo) FindByKey(ctx context.Context, key string) (*models.Fleet, error) {
	var fleet models.Fleet
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&fleet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrFleetNotFound, "舰队不存在: %s", key)
		}
		return nil, err
	}
	return &fleet, nil
}

// FindArriving 查找截止时间前到达的航行中舰队
func (r *fleetRepo) FindArriving(ctx context.Context, deadline time.Time) ([]*models.Fleet, error) {
	var fleets []*models.Fleet
	err := r.db.WithContext(ctx).
		Where("state = ? AND eta IS NOT NULL AND eta <= ?", models.FleetMoving, deadline).
		Order("eta ASC").
		Find(&fleets).Error
	return fleets, err
}

// NextArrivalTime 下一个舰队到达时间（无航行中舰队时返回nil）
func (r *fleetRepo) NextArrivalTime(ctx context.Context) (*time.Time, error) {
	var fleet models.Fleet
	err := r.db.WithContext(ctx).
		Where("state = ? AND eta IS NOT NULL", models.FleetMoving).
		Order("eta ASC").
		First(&fleet).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return fleet.ETA, nil
}

// Save 保存舰队全部字段（含置空的目标与ETA）
func (r *fleetRepo) Save(ctx context.Context, fleet *models.Fleet) error {
	return r.db.WithContext(ctx).
		Model(fleet).
		Select("star_id", "target_star_id", "num_ships", "state", "eta").
		Updates(map[string]interface{}{
			"star_id":        fleet.StarID,
			"target_star_id": fleet.TargetStarID,
			"num_ships":      fleet.NumShips,
			"state":          fleet.State,
			"eta":            fleet.ETA,
		}).Error
}

// MoveToStar 将舰队归属切换到目标恒星并转为驻留
func (r *fleetRepo) MoveToStar(ctx context.Context, fleet *models.Fleet, starID uint) error {
	fleet.StarID = starID
	fleet.Idle()
	return r.Save(ctx, fleet)
}

// WithTx 使用事务
func (r *fleetRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &fleetRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
