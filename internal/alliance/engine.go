package alliance

import (
	"context"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/ledger"
	"github.com/wfunc/galaxy-server/internal/logger"
	"github.com/wfunc/galaxy-server/internal/models"
	"github.com/wfunc/galaxy-server/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine 联盟治理引擎。
// 负责提案的创建、投票、计票与效果分发；每个操作在单个数据库事务内完成。
type Engine struct {
	db            *gorm.DB
	ledger        *ledger.Ledger
	shieldMaxSize int
	log           *zap.Logger
	effects       map[models.RequestType]effectFunc
}

// NewEngine 创建治理引擎
func NewEngine(db *gorm.DB, l *ledger.Ledger, shieldMaxSize int) *Engine {
	e := &Engine{
		db:            db,
		ledger:        l,
		shieldMaxSize: shieldMaxSize,
		log:           logger.GetModuleLogger("governance"),
	}
	e.effects = e.buildEffects()
	return e
}

// SubmitRequest 提交提案并立即进行一次计票。
// 零票门槛的提案类型（退出、存款）会在提交时直接通过。
func (e *Engine) SubmitRequest(ctx context.Context, request *models.AllianceRequest) error {
	if !request.RequestType.IsValid() {
		return apperrors.Newf(apperrors.ErrInvalidRequestType, "未知的提案类型: %s", request.RequestType)
	}
	request.State = models.RequestPending
	request.NumVotes = 0

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewAllianceRequestRepository(tx)
		if err := requestRepo.Create(ctx, request); err != nil {
			return err
		}

		e.log.Info("提案已创建",
			zap.Uint("request_id", request.ID),
			zap.Uint("alliance_id", request.AllianceID),
			zap.String("type", string(request.RequestType)),
		)

		return e.resolve(ctx, tx, request)
	})
}

// CastVote 投票。
// 在单个事务内锁定提案、写入选票、重算票数并判定是否越过通过/否决门槛；
// 同一帝国重复投票时覆盖旧票而不是累加。
func (e *Engine) CastVote(ctx context.Context, requestID, empireID uint, vote int) error {
	if vote != 1 && vote != -1 {
		return apperrors.Newf(apperrors.ErrInvalidParam, "选票必须为+1或-1，实际为%d", vote)
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewAllianceRequestRepository(tx)

		// 行锁保证同一提案上的投票串行化
		request, err := requestRepo.LockForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		if !request.IsPending() {
			return apperrors.Newf(apperrors.ErrRequestNotPending, "提案%d状态为%s", requestID, request.State)
		}

		if !request.CanVote(empireID) {
			return apperrors.Newf(apperrors.ErrVoteNotAllowed, "帝国%d是提案人或目标，不能投票", empireID)
		}

		// 投票人必须是本联盟成员
		empireRepo := repository.NewEmpireRepository(tx)
		voter, err := empireRepo.FindByID(ctx, empireID)
		if err != nil {
			return err
		}
		if !voter.IsAllianceMember(request.AllianceID) {
			return apperrors.Newf(apperrors.ErrNotAllianceMember, "帝国%d不是联盟%d成员", empireID, request.AllianceID)
		}

		// 写票并重算合计
		err = requestRepo.UpsertVote(ctx, &models.AllianceVote{
			RequestID: request.ID,
			EmpireID:  empireID,
			Vote:      vote,
		})
		if err != nil {
			return err
		}

		numVotes, err := requestRepo.SumVotes(ctx, request.ID)
		if err != nil {
			return err
		}
		if err := requestRepo.UpdateNumVotes(ctx, request.ID, numVotes); err != nil {
			return err
		}
		request.NumVotes = numVotes

		e.log.Debug("选票已记录",
			zap.Uint("request_id", request.ID),
			zap.Uint("empire_id", empireID),
			zap.Int("vote", vote),
			zap.Int("num_votes", numVotes),
		)

		return e.resolve(ctx, tx, request)
	})
}

// OnVote 对已计入票数的提案执行一次门槛判定。
// 供票数在引擎外部累加的调用方使用。
func (e *Engine) OnVote(ctx context.Context, requestID uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewAllianceRequestRepository(tx)
		request, err := requestRepo.LockForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		if !request.IsPending() {
			return apperrors.Newf(apperrors.ErrRequestNotPending, "提案%d状态为%s", requestID, request.State)
		}

		return e.resolve(ctx, tx, request)
	})
}

// WithdrawRequest 提案人撤回自己的待审提案
func (e *Engine) WithdrawRequest(ctx context.Context, requestID, empireID uint) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requestRepo := repository.NewAllianceRequestRepository(tx)
		request, err := requestRepo.LockForUpdate(ctx, requestID)
		if err != nil {
			return err
		}

		if !request.IsPending() || request.RequestEmpireID != empireID {
			return apperrors.Newf(apperrors.ErrRequestNotWithdrawable, "提案%d不可由帝国%d撤回", requestID, empireID)
		}

		if err := requestRepo.MarkState(ctx, request.ID, request.NumVotes, models.RequestWithdrawn); err != nil {
			return err
		}

		e.log.Info("提案已撤回",
			zap.Uint("request_id", request.ID),
			zap.Uint("empire_id", empireID),
		)
		return nil
	})
}

// resolve 门槛判定：达到通过票数则先持久化通过状态再执行效果，
// 达到否决票数则仅持久化否决状态，均未达到时保持投票中。
func (e *Engine) resolve(ctx context.Context, tx *gorm.DB, request *models.AllianceRequest) error {
	empireRepo := repository.NewEmpireRepository(tx)
	memberCount, err := empireRepo.CountMembers(ctx, request.AllianceID)
	if err != nil {
		return err
	}

	required := RequiredVotes(int(memberCount), request)

	switch {
	case request.NumVotes >= required:
		return e.accept(ctx, tx, request)

	case request.NumVotes <= -required:
		requestRepo := repository.NewAllianceRequestRepository(tx)
		if err := requestRepo.MarkState(ctx, request.ID, request.NumVotes, models.RequestRejected); err != nil {
			return err
		}
		request.State = models.RequestRejected

		e.log.Info("提案已否决",
			zap.Uint("request_id", request.ID),
			zap.Int("num_votes", request.NumVotes),
			zap.Int("required", required),
		)
		return nil

	default:
		// 未达门槛，继续投票
		return nil
	}
}

// accept 持久化通过状态后分发效果。状态写入先于效果执行，顺序不可调换。
func (e *Engine) accept(ctx context.Context, tx *gorm.DB, request *models.AllianceRequest) error {
	requestRepo := repository.NewAllianceRequestRepository(tx)
	if err := requestRepo.MarkState(ctx, request.ID, request.NumVotes, models.RequestAccepted); err != nil {
		return err
	}
	request.State = models.RequestAccepted

	allianceRepo := repository.NewAllianceRepository(tx)
	alliance, err := allianceRepo.LockForUpdate(ctx, request.AllianceID)
	if err != nil {
		return err
	}

	effect, ok := e.effects[request.RequestType]
	if !ok {
		return apperrors.Newf(apperrors.ErrInvalidRequestType, "未知的提案类型: %s", request.RequestType)
	}

	outcome, err := effect(ctx, tx, alliance, request)
	if err != nil {
		return err
	}

	if outcome == OutcomeInsufficientFunds {
		// 转账因资金不足被放弃，但提案保持已通过状态
		e.log.Warn("提案已通过但转账未执行",
			zap.Uint("request_id", request.ID),
			zap.String("type", string(request.RequestType)),
			zap.String("outcome", string(outcome)),
		)
		return nil
	}

	e.log.Info("提案已通过并生效",
		zap.Uint("request_id", request.ID),
		zap.Uint("alliance_id", request.AllianceID),
		zap.String("type", string(request.RequestType)),
		zap.Int("num_votes", request.NumVotes),
	)
	return nil
}
