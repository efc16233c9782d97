package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmpireRepository 帝国仓储接口
type EmpireRepository interface {
	BaseRepository
	Create(ctx context.Context, empire *models.Empire) error
	FindByID(ctx context.Context, id uint) (*models.Empire, error)
	FindByAllianceID(ctx context.Context, allianceID uint) ([]*models.Empire, error)
	CountMembers(ctx context.Context, allianceID uint) (int64, error)
	SetMembership(ctx context.Context, empireID, allianceID uint, rank int) error
	ClearMembership(ctx context.Context, empireID uint) error
	AddCash(ctx context.Context, empireID uint, amount int64) error
	DeductCash(ctx context.Context, empireID uint, amount int64) error
	LockForUpdate(ctx context.Context, empireID uint) (*models.Empire, error)
}

// empireRepo 帝国仓储实现
type empireRepo struct {
	*BaseRepo
}

// NewEmpireRepository 创建帝国仓储
func NewEmpireRepository(db *gorm.DB) EmpireRepository {
	return &empireRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建帝国
func (r *empireRepo) Create(ctx context.Context, empire *models.Empire) error {
	return r.db.WithContext(ctx).Create(empire).Error
}

// FindByID 根据ID查找帝国
func (r *empireRepo) FindByID(ctx context.Context, id uint) (*models.Empire, error) {
	var empire models.Empire
	err := r.db.WithContext(ctx).First(&empire, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "帝国不存在: %d", id)
		}
		return nil, err
	}
	return &empire, nil
}

// FindByAllianceID 查找联盟的全部成员
func (r *empireRepo) FindByAllianceID(ctx context.Context, allianceID uint) ([]*models.Empire, error) {
	var empires []*models.Empire
	err := r.db.WithContext(ctx).
		Where("alliance_id = ?", allianceID).
		Order("id ASC").
		Find(&empires).Error
	return empires, err
}

// CountMembers 统计联盟成员数
func (r *empireRepo) CountMembers(ctx context.Context, allianceID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Empire{}).
		Where("alliance_id = ?", allianceID).
		Count(&count).Error
	return count, err
}

// SetMembership 设置帝国的联盟归属与职级
func (r *empireRepo) SetMembership(ctx context.Context, empireID, allianceID uint, rank int) error {
	return r.db.WithContext(ctx).
		Model(&models.Empire{}).
		Where("id = ?", empireID).
		Updates(map[string]interface{}{
			"alliance_id":   allianceID,
			"alliance_rank": rank,
		}).Error
}

// ClearMembership 清除帝国的联盟归属（退出/开除）
func (r *empireRepo) ClearMembership(ctx context.Context, empireID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Empire{}).
		Where("id = ?", empireID).
		Updates(map[string]interface{}{
			"alliance_id":   nil,
			"alliance_rank": nil,
		}).Error
}

// AddCash 增加帝国现金
func (r *empireRepo) AddCash(ctx context.Context, empireID uint, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Empire{}).
		Where("id = ?", empireID).
		Update("cash", gorm.Expr("cash + ?", amount)).Error
}

// DeductCash 扣减帝国现金（余额不足时拒绝）
func (r *empireRepo) DeductCash(ctx context.Context, empireID uint, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Empire{}).
		Where("id = ? AND cash >= ?", empireID, amount).
		Update("cash", gorm.Expr("cash - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrInsufficientFunds, "帝国%d现金不足，需要%d", empireID, amount)
	}

	return nil
}

// LockForUpdate 锁定帝国用于更新（悲观锁）
func (r *empireRepo) LockForUpdate(ctx context.Context, empireID uint) (*models.Empire, error) {
	var empire models.Empire
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&empire, empireID).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "帝国不存在: %d", empireID)
		}
		return nil, err
	}
	return &empire, nil
}

// WithTx 使用事务
func (r *empireRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &empireRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// CashAuditRepository 现金流水仓储接口
type CashAuditRepository interface {
	BaseRepository
	Create(ctx context.Context, audit *models.CashAudit) error
	FindByEmpireID(ctx context.Context, empireID uint, pagination *Pagination) ([]*models.CashAudit, error)
	FindByRequestID(ctx context.Context, requestID uint) ([]*models.CashAudit, error)
}

// cashAuditRepo 现金流水仓储实现
type cashAuditRepo struct {
	*BaseRepo
}

// NewCashAuditRepository 创建现金流水仓储
func NewCashAuditRepository(db *gorm.DB) CashAuditRepository {
	return &cashAuditRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建现金流水记录
func (r *cashAuditRepo) Create(ctx context.Context, audit *models.CashAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// FindByEmpireID 查找帝国的现金流水
func (r *cashAuditRepo) FindByEmpireID(ctx context.Context, empireID uint, pagination *Pagination) ([]*models.CashAudit, error) {
	var audits []*models.CashAudit
	query := r.db.WithContext(ctx).Model(&models.CashAudit{}).Where("empire_id = ?", empireID)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&audits).Error

	return audits, err
}

// FindByRequestID 查找某提案产生的现金流水
func (r *cashAuditRepo) FindByRequestID(ctx context.Context, requestID uint) ([]*models.CashAudit, error) {
	var audits []*models.CashAudit
	err := r.db.WithContext(ctx).
		Where("alliance_request_id = ?", requestID).
		Order("created_at ASC").
		Find(&audits).Error
	return audits, err
}

// WithTx 使用事务
func (r *cashAuditRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &cashAuditRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
