package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllianceRepository 联盟仓储接口
type AllianceRepository interface {
	BaseRepository
	Create(ctx context.Context, alliance *models.Alliance) error
	FindByID(ctx context.Context, id uint) (*models.Alliance, error)
	LockForUpdate(ctx context.Context, id uint) (*models.Alliance, error)
	UpdateName(ctx context.Context, id uint, name string) error
	UpdateShieldImage(ctx context.Context, id uint, png []byte) error
	CreditBank(ctx context.Context, id uint, amount int64) error
	DebitBank(ctx context.Context, id uint, amount int64) error
	CreateBankAudit(ctx context.Context, audit *models.AllianceBankAudit) error
	FindBankAudits(ctx context.Context, allianceID uint, pagination *Pagination) ([]*models.AllianceBankAudit, error)
}

// allianceRepo 联盟仓储实现
type allianceRepo struct {
	*BaseRepo
}

// NewAllianceRepository 创建联盟仓储
func NewAllianceRepository(db *gorm.DB) AllianceRepository {
	return &allianceRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建联盟
func (r *allianceRepo) Create(ctx context.Context, alliance *models.Alliance) error {
	return r.db.WithContext(ctx).Create(alliance).Error
}

// FindByID 根据ID查找联盟
func (r *allianceRepo) FindByID(ctx context.Context, id uint) (*models.Alliance, error) {
	var alliance models.Alliance
	err := r.db.WithContext(ctx).First(&alliance, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "联盟不存在: %d", id)
		}
		return nil, err
	}
	return &alliance, nil
}

// LockForUpdate 锁定联盟用于更新（悲观锁）
func (r *allianceRepo) LockForUpdate(ctx context.Context, id uint) (*models.Alliance, error) {
	var alliance models.Alliance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&alliance, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "联盟不存在: %d", id)
		}
		return nil, err
	}
	return &alliance, nil
}

// UpdateName 更新联盟名称
func (r *allianceRepo) UpdateName(ctx context.Context, id uint, name string) error {
	return r.db.WithContext(ctx).
		Model(&models.Alliance{}).
		Where("id = ?", id).
		Update("name", name).Error
}

// UpdateShieldImage 更新盟徽图片
func (r *allianceRepo) UpdateShieldImage(ctx context.Context, id uint, png []byte) error {
	return r.db.WithContext(ctx).
		Model(&models.Alliance{}).
		Where("id = ?", id).
		Update("shield_image", png).Error
}

// CreditBank 联盟银行入账
func (r *allianceRepo) CreditBank(ctx context.Context, id uint, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Alliance{}).
		Where("id = ?", id).
		Update("bank_balance", gorm.Expr("bank_balance + ?", amount)).Error
}

// DebitBank 联盟银行出账。
// 单条条件更新同时完成余额校验与扣减，余额必须严格大于提取额。
func (r *allianceRepo) DebitBank(ctx context.Context, id uint, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Alliance{}).
		Where("id = ? AND bank_balance > ?", id, amount).
		Update("bank_balance", gorm.Expr("bank_balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrInsufficientBank, "联盟%d银行余额不足，需要%d", id, amount)
	}

	return nil
}

// CreateBankAudit 创建银行流水记录
func (r *allianceRepo) CreateBankAudit(ctx context.Context, audit *models.AllianceBankAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

// FindBankAudits 查找联盟银行流水
func (r *allianceRepo) FindBankAudits(ctx context.Context, allianceID uint, pagination *Pagination) ([]*models.AllianceBankAudit, error) {
	var audits []*models.AllianceBankAudit
	query := r.db.WithContext(ctx).Model(&models.AllianceBankAudit{}).Where("alliance_id = ?", allianceID)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("date DESC").
		Find(&audits).Error

	return audits, err
}

// WithTx 使用事务
func (r *allianceRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &allianceRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
