package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
)

// StarRepository 恒星仓储接口
type StarRepository interface {
	BaseRepository
	Create(ctx context.Context, star *models.Star) error
	FindByID(ctx context.Context, id uint) (*models.Star, error)
	FindByKey(ctx context.Context, key string) (*models.Star, error)
	GetStars(ctx context.Context, ids []uint) ([]*models.Star, error)
	UpdateSimulation(ctx context.Context, star *models.Star) error
	SetCombatReport(ctx context.Context, starID uint, report *models.CombatReport) error
}

// starRepo 恒星仓储实现
type starRepo struct {
	*BaseRepo
}

// NewStarRepository 创建恒星仓储
func NewStarRepository(db *gorm.DB) StarRepository {
	return &starRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建恒星
func (r *starRepo) Create(ctx context.Context, star *models.Star) error {
	return r.db.WithContext(ctx).Create(star).Error
}

// FindByID 根据ID查找恒星（加载舰队与侦察报告）
func (r *starRepo) FindByID(ctx context.Context, id uint) (*models.Star, error) {
	var star models.Star
	err := r.db.WithContext(ctx).
		Preload("Fleets").
		Preload("ScoutReports", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC")
		}).
		First(&star, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrStarNotFound, "恒星不存在: %d", id)
		}
		return nil, err
	}
	return &star, nil
}

// FindByKey 根据Key查找恒星
func (r *starRepo) FindByKey(ctx context.Context, key string) (*models.Star, error) {
	var star models.Star
	err := r.db.WithContext(ctx).
		Preload("Fleets").
		Where("key = ?", key).
		First(&star).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrStarNotFound, "恒星不存在: %s", key)
		}
		return nil, err
	}
	return &star, nil
}

// GetStars 批量加载恒星（一次往返，含舰队与侦察报告）
func (r *starRepo) GetStars(ctx context.Context, ids []uint) ([]*models.Star, error) {
	var stars []*models.Star
	err := r.db.WithContext(ctx).
		Preload("Fleets").
		Preload("ScoutReports", func(db *gorm.DB) *gorm.DB {
			return db.Order("date ASC")
		}).
		Where("id IN ?", ids).
		Find(&stars).Error
	return stars, err
}

// UpdateSimulation 持久化模拟结果（模拟时间戳、战报、各舰队状态）
func (r *starRepo) UpdateSimulation(ctx context.Context, star *models.Star) error {
	// 恒星本体字段
	err := r.db.WithContext(ctx).
		Model(&models.Star{}).
		Where("id = ?", star.ID).
		Updates(map[string]interface{}{
			"last_simulation": star.LastSimulation,
			"combat_report":   star.CombatReport,
		}).Error
	if err != nil {
		return err
	}

	// 模拟可能改变了舰队数量与状态
	for _, fleet := range star.Fleets {
		err := r.db.WithContext(ctx).
			Model(fleet).
			Updates(map[string]interface{}{
				"star_id":        fleet.StarID,
				"target_star_id": fleet.TargetStarID,
				"num_ships":      fleet.NumShips,
				"state":          fleet.State,
				"eta":            fleet.ETA,
			}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// SetCombatReport 设置恒星的当前战报
func (r *starRepo) SetCombatReport(ctx context.Context, starID uint, report *models.CombatReport) error {
	return r.db.WithContext(ctx).
		Model(&models.Star{}).
		Where("id = ?", starID).
		Update("combat_report", report).Error
}

// WithTx 使用事务
func (r *starRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &starRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// ScoutReportRepository 侦察报告仓储接口
type ScoutReportRepository interface {
	BaseRepository
	Create(ctx context.Context, report *models.ScoutReport) error
	FindByStar(ctx context.Context, starID uint, limit int) ([]*models.ScoutReport, error)
	FindByStarAndEmpire(ctx context.Context, starID, empireID uint, limit int) ([]*models.ScoutReport, error)
	Latest(ctx context.Context, starID, empireID uint) (*models.ScoutReport, error)
}

// scoutReportRepo 侦察报告仓储实现
type scoutReportRepo struct {
	*BaseRepo
}

// NewScoutReportRepository 创建侦察报告仓储
func NewScoutReportRepository(db *gorm.DB) ScoutReportRepository {
	return &scoutReportRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建侦察报告
func (r *scoutReportRepo) Create(ctx context.Context, report *models.ScoutReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// FindByStar 查找恒星的侦察报告（按日期倒序，最新在前）
func (r *scoutReportRepo) FindByStar(ctx context.Context, starID uint, limit int) ([]*models.ScoutReport, error) {
	var reports []*models.ScoutReport
	query := r.db.WithContext(ctx).
		Where("star_id = ?", starID).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reports).Error
	return reports, err
}

// FindByStarAndEmpire 查找帝国对某恒星的侦察报告（按日期倒序）
func (r *scoutReportRepo) FindByStarAndEmpire(ctx context.Context, starID, empireID uint, limit int) ([]*models.ScoutReport, error) {
	var reports []*models.ScoutReport
	query := r.db.WithContext(ctx).
		Where("star_id = ? AND empire_id = ?", starID, empireID).
		Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&reports).Error
	return reports, err
}

// Latest 帝国对某恒星的最新侦察报告
func (r *scoutReportRepo) Latest(ctx context.Context, starID, empireID uint) (*models.ScoutReport, error) {
	var report models.ScoutReport
	err := r.db.WithContext(ctx).
		Where("star_id = ? AND empire_id = ?", starID, empireID).
		Order("date DESC").
		First(&report).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// PruneBefore 清理某日期前的侦察报告
func (r *scoutReportRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("date < ?", cutoff).
		Delete(&models.ScoutReport{})
	return result.RowsAffected, result.Error
}

// WithTx 使用事务
func (r *scoutReportRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &scoutReportRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
