package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllianceRequestRepository 联盟提案仓储接口
type AllianceRequestRepository interface {
	BaseRepository
	Create(ctx context.Context, request *models.AllianceRequest) error
	FindByID(ctx context.Context, id uint) (*models.AllianceRequest, error)
	LockForUpdate(ctx context.Context, id uint) (*models.AllianceRequest, error)
	FindPendingByAlliance(ctx context.Context, allianceID uint) ([]*models.AllianceRequest, error)
	FindByAlliance(ctx context.Context, allianceID uint, pagination *Pagination) ([]*models.AllianceRequest, error)
	MarkState(ctx context.Context, id uint, numVotes int, state models.RequestState) error
	UpdateNumVotes(ctx context.Context, id uint, numVotes int) error
	UpsertVote(ctx context.Context, vote *models.AllianceVote) error
	SumVotes(ctx context.Context, requestID uint) (int, error)
	FindVotes(ctx context.Context, requestID uint) ([]*models.AllianceVote, error)
	WithdrawPendingJoinRequests(ctx context.Context, empireID uint, exceptRequestID uint) (int64, error)
}

// allianceRequestRepo 联盟提案仓储实现
type allianceRequestRepo struct {
	*BaseRepo
}

// NewAllianceRequestRepository 创建联盟提案仓储
func NewAllianceRequestRepository(db *gorm.DB) AllianceRequestRepository {
	return &allianceRequestRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建提案
func (r *allianceRequestRepo) Create(ctx context.Context, request *models.AllianceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// FindByID 根据ID查找提案
func (r *allianceRequestRepo) FindByID(ctx context.Context, id uint) (*models.AllianceRequest, error) {
	var request models.AllianceRequest
	err := r.db.WithContext(ctx).First(&request, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "提案不存在: %d", id)
		}
		return nil, err
	}
	return &request, nil
}

// LockForUpdate 锁定提案用于更新（悲观锁）
func (r *allianceRequestRepo) LockForUpdate(ctx context.Context, id uint) (*models.AllianceRequest, error) {
	var request models.AllianceRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "提案不存在: %d", id)
		}
		return nil, err
	}
	return &request, nil
}

// FindPendingByAlliance 查找联盟的全部投票中提案
func (r *allianceRequestRepo) FindPendingByAlliance(ctx context.Context, allianceID uint) ([]*models.AllianceRequest, error) {
	var requests []*models.AllianceRequest
	err := r.db.WithContext(ctx).
		Where("alliance_id = ? AND state = ?", allianceID, models.RequestPending).
		Order("id ASC").
		Find(&requests).Error
	return requests, err
}

// FindByAlliance 查找联盟的提案历史
func (r *allianceRequestRepo) FindByAlliance(ctx context.Context, allianceID uint, pagination *Pagination) ([]*models.AllianceRequest, error) {
	var requests []*models.AllianceRequest
	query := r.db.WithContext(ctx).Model(&models.AllianceRequest{}).Where("alliance_id = ?", allianceID)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Limit(pagination.PageSize).
		Offset(pagination.Offset()).
		Order("created_at DESC").
		Find(&requests).Error

	return requests, err
}

// MarkState 更新提案状态（仅限投票中的提案，避免终态被覆盖）
func (r *allianceRequestRepo) MarkState(ctx context.Context, id uint, numVotes int, state models.RequestState) error {
	result := r.db.WithContext(ctx).
		Model(&models.AllianceRequest{}).
		Where("id = ? AND state = ?", id, models.RequestPending).
		Updates(map[string]interface{}{
			"num_votes": numVotes,
			"state":     state,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrRequestNotPending, "提案%d已结束投票", id)
	}

	return nil
}

// UpdateNumVotes 更新提案票数
func (r *allianceRequestRepo) UpdateNumVotes(ctx context.Context, id uint, numVotes int) error {
	return r.db.WithContext(ctx).
		Model(&models.AllianceRequest{}).
		Where("id = ?", id).
		Update("num_votes", numVotes).Error
}

// UpsertVote 写入选票（同一帝国重投时覆盖旧票）
func (r *allianceRequestRepo) UpsertVote(ctx context.Context, vote *models.AllianceVote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}, {Name: "empire_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"vote", "updated_at"}),
		}).
		Create(vote).Error
}

// SumVotes 统计提案的有符号总票数
func (r *allianceRequestRepo) SumVotes(ctx context.Context, requestID uint) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.AllianceVote{}).
		Where("request_id = ?", requestID).
		Select("COALESCE(SUM(vote), 0)").
		Scan(&total).Error
	return int(total), err
}

// FindVotes 查找提案的全部选票
func (r *allianceRequestRepo) FindVotes(ctx context.Context, requestID uint) ([]*models.AllianceVote, error) {
	var votes []*models.AllianceVote
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&votes).Error
	return votes, err
}

// WithdrawPendingJoinRequests 撤回帝国在其他联盟的投票中加盟提案
func (r *allianceRequestRepo) WithdrawPendingJoinRequests(ctx context.Context, empireID uint, exceptRequestID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AllianceRequest{}).
		Where("request_empire_id = ? AND request_type = ? AND state = ? AND id <> ?",
			empireID, models.RequestJoin, models.RequestPending, exceptRequestID).
		Update("state", models.RequestWithdrawn)
	return result.RowsAffected, result.Error
}

// WithTx 使用事务
func (r *allianceRequestRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &allianceRequestRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
