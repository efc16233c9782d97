package repository

import (
	"context"

	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
)

// SituationReportRepository 战况通报仓储接口
type SituationReportRepository interface {
	BaseRepository
	Create(ctx context.Context, report *models.SituationReport) error
	FindByEmpire(ctx context.Context, empireID uint, pagination *Pagination) ([]*models.SituationReport, error)
	FindByStar(ctx context.Context, starID uint, pagination *Pagination) ([]*models.SituationReport, error)
	CountByEmpire(ctx context.Context, empireID uint) (int64, error)
}

// situationReportRepo 战况通报仓储实现
type situationReportRepo struct {
	*BaseRepo
}

// NewSituationReportRepository 创建战况通报仓储
func NewSituationReportRepository(db *gorm.DB) SituationReportRepository {
	return &situationReportRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建战况通报
func (r *situationReportRepo) Create(ctx context.Context, report *models.SituationReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// FindByEmpire 查找帝国的战况通报（最新在前）
func (r *situationReportRepo) FindByEmpire(ctx context.Context, empireID uint, pagination *Pagination) ([]*models.SituationReport, error) {
	var reports []*models.SituationReport
	query := r.db.WithContext(ctx).Model(&models.SituationReport{}).Where("empire_id = ?", empireID)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("report_time DESC").
		Find(&reports).Error

	return reports, err
}

// FindByStar 查找恒星相关的战况通报（最新在前）
func (r *situationReportRepo) FindByStar(ctx context.Context, starID uint, pagination *Pagination) ([]*models.SituationReport, error) {
	var reports []*models.SituationReport
	query := r.db.WithContext(ctx).Model(&models.SituationReport{}).Where("star_id = ?", starID)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("report_time DESC").
		Find(&reports).Error

	return reports, err
}

// CountByEmpire 统计帝国的战况通报数
func (r *situationReportRepo) CountByEmpire(ctx context.Context, empireID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SituationReport{}).
		Where("empire_id = ?", empireID).
		Count(&count).Error
	return count, err
}

// WithTx 使用事务
func (r *situationReportRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &situationReportRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
