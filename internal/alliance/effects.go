package alliance

import (
	"context"
	"time"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"github.com/wfunc/galaxy-server/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EffectOutcome 提案效果的执行结果
type EffectOutcome string

const (
	// OutcomeApplied 效果已生效
	OutcomeApplied EffectOutcome = "applied"
	// OutcomeInsufficientFunds 资金不足，转账被放弃（提案仍保持已通过状态）
	OutcomeInsufficientFunds EffectOutcome = "insufficient_funds"
)

// effectFunc 提案通过后的效果处理函数
type effectFunc func(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error)

// buildEffects 构建提案类型到效果处理函数的分发表
func (e *Engine) buildEffects() map[models.RequestType]effectFunc {
	return map[models.RequestType]effectFunc{
		models.RequestJoin:         e.applyJoin,
		models.RequestLeave:        e.applyLeave,
		models.RequestKick:         e.applyKick,
		models.RequestDepositCash:  e.applyDepositCash,
		models.RequestWithdrawCash: e.applyWithdrawCash,
		models.RequestChangeImage:  e.applyChangeImage,
		models.RequestChangeName:   e.applyChangeName,
	}
}

// applyJoin 加入联盟：设置归属并撤回该帝国在其他联盟的待审加盟提案
func (e *Engine) applyJoin(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	empireRepo := repository.NewEmpireRepository(tx)
	if err := empireRepo.SetMembership(ctx, request.RequestEmpireID, alliance.ID, models.RankMember); err != nil {
		return "", err
	}

	requestRepo := repository.NewAllianceRequestRepository(tx)
	withdrawn, err := requestRepo.WithdrawPendingJoinRequests(ctx, request.RequestEmpireID, request.ID)
	if err != nil {
		return "", err
	}
	if withdrawn > 0 {
		e.log.Info("撤回其他联盟的待审加盟提案",
			zap.Uint("empire_id", request.RequestEmpireID),
			zap.Int64("withdrawn", withdrawn),
		)
	}

	return OutcomeApplied, nil
}

// applyLeave 退出联盟：清除提案人的联盟归属
func (e *Engine) applyLeave(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	empireRepo := repository.NewEmpireRepository(tx)
	if err := empireRepo.ClearMembership(ctx, request.RequestEmpireID); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

// applyKick 开除成员：清除目标帝国的联盟归属
func (e *Engine) applyKick(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	if request.TargetEmpireID == nil {
		return "", apperrors.New(apperrors.ErrInvalidParam, "开除提案缺少目标帝国")
	}

	empireRepo := repository.NewEmpireRepository(tx)
	if err := empireRepo.ClearMembership(ctx, *request.TargetEmpireID); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

// applyDepositCash 存入联盟银行：先扣提案人现金，成功后银行入账并记流水。
// 提案人现金不足时整笔转账放弃，联盟余额与流水均不产生变更。
func (e *Engine) applyDepositCash(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	if request.Amount == nil || *request.Amount <= 0 {
		return "", apperrors.New(apperrors.ErrInvalidParam, "存款提案缺少有效金额")
	}
	amount := *request.Amount

	ok, err := e.ledger.Adjust(ctx, tx, request.RequestEmpireID, -amount, models.CashReasonAllianceWithdraw, request.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return OutcomeInsufficientFunds, nil
	}

	allianceRepo := repository.NewAllianceRepository(tx)
	if err := allianceRepo.CreditBank(ctx, alliance.ID, amount); err != nil {
		return "", err
	}

	audit := &models.AllianceBankAudit{
		AllianceID:        alliance.ID,
		AllianceRequestID: request.ID,
		EmpireID:          request.RequestEmpireID,
		Date:              time.Now(),
		AmountBefore:      alliance.BankBalance,
		AmountAfter:       alliance.BankBalance + amount,
	}
	if err := allianceRepo.CreateBankAudit(ctx, audit); err != nil {
		return "", err
	}

	return OutcomeApplied, nil
}

// applyWithdrawCash 从联盟银行提取：单条条件更新完成余额校验与扣减，
// 余额不足时放弃提取，提案人现金与流水均不产生变更。
func (e *Engine) applyWithdrawCash(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	if request.Amount == nil || *request.Amount <= 0 {
		return "", apperrors.New(apperrors.ErrInvalidParam, "取款提案缺少有效金额")
	}
	amount := *request.Amount

	allianceRepo := repository.NewAllianceRepository(tx)
	if err := allianceRepo.DebitBank(ctx, alliance.ID, amount); err != nil {
		if apperrors.Is(err, apperrors.ErrInsufficientBank) {
			return OutcomeInsufficientFunds, nil
		}
		return "", err
	}

	ok, err := e.ledger.Adjust(ctx, tx, request.RequestEmpireID, amount, models.CashReasonAllianceWithdraw, request.ID)
	if err != nil {
		return "", err
	}
	_ = ok // 入账不会因余额不足失败

	audit := &models.AllianceBankAudit{
		AllianceID:        alliance.ID,
		AllianceRequestID: request.ID,
		EmpireID:          request.RequestEmpireID,
		Date:              time.Now(),
		AmountBefore:      alliance.BankBalance,
		AmountAfter:       alliance.BankBalance - amount,
	}
	if err := allianceRepo.CreateBankAudit(ctx, audit); err != nil {
		return "", err
	}

	return OutcomeApplied, nil
}

// applyChangeImage 更换盟徽：解码、按上限缩放、重编码后存储
func (e *Engine) applyChangeImage(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	if len(request.PngImage) == 0 {
		return "", apperrors.New(apperrors.ErrInvalidParam, "盟徽提案缺少图片数据")
	}

	scaled, err := ScaleShieldImage(request.PngImage, e.shieldMaxSize)
	if err != nil {
		return "", err
	}

	allianceRepo := repository.NewAllianceRepository(tx)
	if err := allianceRepo.UpdateShieldImage(ctx, alliance.ID, scaled); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

// applyChangeName 更改联盟名称
func (e *Engine) applyChangeName(ctx context.Context, tx *gorm.DB, alliance *models.Alliance, request *models.AllianceRequest) (EffectOutcome, error) {
	if request.NewName == nil || *request.NewName == "" {
		return "", apperrors.New(apperrors.ErrInvalidParam, "改名提案缺少新名称")
	}

	allianceRepo := repository.NewAllianceRepository(tx)
	if err := allianceRepo.UpdateName(ctx, alliance.ID, *request.NewName); err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}
