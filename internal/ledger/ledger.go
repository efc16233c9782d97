package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/logger"
	"github.com/wfunc/galaxy-server/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger 帝国现金账本，所有余额变更都经由它产生流水
type Ledger struct {
	log *zap.Logger
}

// New 创建账本
func New() *Ledger {
	return &Ledger{
		log: logger.GetModuleLogger("governance"),
	}
}

// Adjust 调整帝国现金余额并写入流水。
// amount为正表示入账，为负表示扣款；扣款时余额不足返回(false, nil)，
// 调用方据此决定放弃操作。requestID可为0（与联盟提案无关的变更）。
func (l *Ledger) Adjust(ctx context.Context, tx *gorm.DB, empireID uint, amount int64, reason string, requestID uint) (bool, error) {
	if amount == 0 {
		return true, nil
	}

	// 锁定帝国行，保证余额读取与更新的原子性
	var empire models.Empire
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&empire, empireID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.Newf(apperrors.ErrNotFound, "帝国不存在: %d", empireID)
		}
		return false, err
	}

	balanceBefore := empire.Cash

	if amount < 0 {
		// 条件更新：余额不足时不产生任何变更
		result := tx.WithContext(ctx).
			Model(&models.Empire{}).
			Where("id = ? AND cash >= ?", empireID, -amount).
			Update("cash", gorm.Expr("cash + ?", amount))
		if result.Error != nil {
			return false, result.Error
		}
		if result.RowsAffected == 0 {
			l.log.Warn("现金不足，放弃扣款",
				zap.Uint("empire_id", empireID),
				zap.Int64("amount", amount),
				zap.Int64("balance", balanceBefore),
			)
			return false, nil
		}
	} else {
		err := tx.WithContext(ctx).
			Model(&models.Empire{}).
			Where("id = ?", empireID).
			Update("cash", gorm.Expr("cash + ?", amount)).Error
		if err != nil {
			return false, err
		}
	}

	// 写入流水
	audit := &models.CashAudit{
		EmpireID:      empireID,
		OrderNo:       uuid.NewString(),
		Reason:        reason,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore + amount,
	}
	if requestID > 0 {
		audit.AllianceRequestID = &requestID
	}
	if err := tx.WithContext(ctx).Create(audit).Error; err != nil {
		return false, err
	}

	l.log.Debug("帝国现金变更",
		zap.Uint("empire_id", empireID),
		zap.Int64("amount", amount),
		zap.Int64("balance_after", audit.BalanceAfter),
		zap.String("reason", reason),
	)

	return true, nil
}

// Balance 读取帝国当前现金余额
func (l *Ledger) Balance(ctx context.Context, tx *gorm.DB, empireID uint) (int64, error) {
	var empire models.Empire
	err := tx.WithContext(ctx).First(&empire, empireID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.Newf(apperrors.ErrNotFound, "帝国不存在: %d", empireID)
		}
		return 0, err
	}
	return empire.Cash, nil
}
