package world

import (
	"context"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/logger"
	"github.com/wfunc/galaxy-server/internal/models"
	"github.com/wfunc/galaxy-server/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ArrivalResolver 舰队到达解析器。
// 按固定顺序完成模拟、舰队转移、钩子触发、二次模拟、战斗检测与通报生成；
// 舰队已不在源恒星时整个流程为空操作，保证重复处理幂等。
type ArrivalResolver struct {
	clock    Clock
	sim      Simulator
	registry *EffectRegistry
	log      *zap.Logger
}

// NewArrivalResolver 创建到达解析器
func NewArrivalResolver(clock Clock, sim Simulator, registry *EffectRegistry) *ArrivalResolver {
	return &ArrivalResolver{
		clock:    clock,
		sim:      sim,
		registry: registry,
		log:      logger.GetModuleLogger("world"),
	}
}

// Resolve 解析单个舰队的到达。src与dst是舰队的出发与目标恒星聚合，
// 由调用方在同一事务内批量加载；所有持久化写入走传入的事务句柄。
func (r *ArrivalResolver) Resolve(ctx context.Context, tx *gorm.DB, fleet *models.Fleet, src, dst *models.Star) error {
	now := r.clock.Now()

	// 1. 分别把两端恒星推进到当前时刻
	if err := r.sim.Simulate(src, now); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrSimulation, "源恒星%s模拟失败", src.Key)
	}
	if err := r.sim.Simulate(dst, now); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrSimulation, "目标恒星%s模拟失败", dst.Key)
	}

	// 2. 舰队必须还在源恒星的集合中，否则本次到达已被处理过
	arrived := src.FindFleet(fleet.ID)
	if arrived == nil {
		r.log.Debug("舰队已不在源恒星，跳过",
			zap.String("fleet", fleet.Key),
			zap.String("star", src.Key),
		)
		return nil
	}

	// 3. 从源恒星移除，挂到目标恒星并转为驻留
	src.RemoveFleet(arrived.ID)
	arrived.StarID = dst.ID
	arrived.Idle()
	dst.Fleets = append(dst.Fleets, arrived)

	// 4. 触发到达钩子
	hc := &HookContext{Now: now}
	for _, effect := range r.registry.EffectsFor(arrived.DesignID) {
		effect.OnArrived(hc, dst, arrived)
	}
	for _, existing := range dst.Fleets {
		if existing.ID == arrived.ID {
			continue
		}
		for _, effect := range r.registry.EffectsFor(existing.DesignID) {
			effect.OnOtherArrived(hc, dst, existing, arrived)
		}
	}
	for _, alert := range hc.Alerts {
		r.log.Info("哨戒警报",
			zap.String("star", alert.StarKey),
			zap.String("sentry", alert.SentryFleet),
			zap.String("intruder", alert.IntruderFleet),
			zap.Uint("empire_id", alert.EmpireID),
		)
	}

	// 5. 新舰队到场或钩子改动可能触发战斗，重新模拟目标恒星
	if err := r.sim.Simulate(dst, now); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrSimulation, "目标恒星%s二次模拟失败", dst.Key)
	}

	// 6. 持久化两端恒星
	starRepo := repository.NewStarRepository(tx)
	if err := starRepo.UpdateSimulation(ctx, src); err != nil {
		return err
	}
	if err := starRepo.UpdateSimulation(ctx, dst); err != nil {
		return err
	}

	// 钩子新生成的侦察报告尚未入库
	scoutRepo := repository.NewScoutReportRepository(tx)
	for _, report := range dst.ScoutReports {
		if report.ID == 0 {
			report.StarID = dst.ID
			if err := scoutRepo.Create(ctx, report); err != nil {
				return err
			}
		}
	}

	// 7. 构造战况通报：抵达通报必有，遇袭通报仅在战报涉及本舰队时附加
	sitrep := &models.SituationReport{
		EmpireID:    arrived.EmpireID,
		StarID:      dst.ID,
		ReportTime:  now,
		PlanetIndex: -1,
		MoveComplete: &models.MoveCompleteRecord{
			FleetKey:      arrived.Key,
			FleetDesignID: arrived.DesignID,
			NumShips:      arrived.NumShips,
		},
	}
	if latest := dst.LatestScoutReport(); latest != nil {
		sitrep.MoveComplete.ScoutReportKey = latest.Key
	}
	if dst.CombatReport.InvolvesFleet(arrived.Key) {
		sitrep.FleetUnderAttack = &models.FleetUnderAttackRecord{
			CombatReportKey: dst.CombatReport.Key,
			FleetKey:        arrived.Key,
			FleetDesignID:   arrived.DesignID,
			NumShips:        arrived.NumShips,
		}
	}

	// 8. 持久化通报
	sitrepRepo := repository.NewSituationReportRepository(tx)
	if err := sitrepRepo.Create(ctx, sitrep); err != nil {
		return err
	}

	r.log.Info("舰队到达已解析",
		zap.String("fleet", arrived.Key),
		zap.String("from", src.Key),
		zap.String("to", dst.Key),
		zap.Float64("num_ships", arrived.NumShips),
		zap.Bool("under_attack", sitrep.FleetUnderAttack != nil),
	)

	return nil
}
