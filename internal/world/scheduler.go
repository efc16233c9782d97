package world

import (
	"context"
	"time"

	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/logger"
	"github.com/wfunc/galaxy-server/internal/models"
	"github.com/wfunc/galaxy-server/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultTickLookahead 舰队到达预判窗口
	DefaultTickLookahead = 10 * time.Second
	// DefaultPollInterval 无舰队在途时的轮询间隔
	DefaultPollInterval = time.Minute
)

// Scheduler 世界时钟调度器。
// 根据在途舰队的最早到达时间决定下次唤醒，唤醒后把预判窗口内
// 到达的舰队逐个交给解析器处理；单个舰队的失败不影响其余舰队。
type Scheduler struct {
	db           *gorm.DB
	clock        Clock
	resolver     *ArrivalResolver
	lookahead    time.Duration
	pollInterval time.Duration
	log          *zap.Logger
}

// NewScheduler 创建调度器
func NewScheduler(db *gorm.DB, clock Clock, resolver *ArrivalResolver, lookahead, pollInterval time.Duration) *Scheduler {
	if lookahead <= 0 {
		lookahead = DefaultTickLookahead
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Scheduler{
		db:           db,
		clock:        clock,
		resolver:     resolver,
		lookahead:    lookahead,
		pollInterval: pollInterval,
		log:          logger.GetModuleLogger("world"),
	}
}

// NextWake 下次唤醒时间：全部在途舰队的最早ETA，无在途舰队时退化为轮询间隔
func (s *Scheduler) NextWake(ctx context.Context) (time.Time, error) {
	fleetRepo := repository.NewFleetRepository(s.db)
	next, err := fleetRepo.NextArrivalTime(ctx)
	if err != nil {
		return time.Time{}, err
	}

	now := s.clock.Now()
	if next == nil {
		return now.Add(s.pollInterval), nil
	}
	if next.Before(now) {
		return now, nil
	}
	return *next, nil
}

// Tick 处理一轮到达：选出预判窗口内到达的航行舰队并逐个解析。
// 返回成功解析的舰队数；单个舰队的错误只记录日志，不中断其余舰队。
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.clock.Now()
	deadline := now.Add(s.lookahead)

	fleetRepo := repository.NewFleetRepository(s.db)
	fleets, err := fleetRepo.FindArriving(ctx, deadline)
	if err != nil {
		return 0, err
	}
	if len(fleets) == 0 {
		return 0, nil
	}

	s.log.Debug("到达扫描命中",
		zap.Int("fleets", len(fleets)),
		zap.Time("deadline", deadline),
	)

	processed := 0
	for _, fleet := range fleets {
		if err := s.resolveFleet(ctx, fleet); err != nil {
			// 单舰队失败隔离：记录并继续
			logger.LogError(err, "舰队到达解析失败",
				zap.String("fleet", fleet.Key),
				zap.Uint("fleet_id", fleet.ID),
			)
			continue
		}
		processed++
	}

	return processed, nil
}

// resolveFleet 在独立事务内解析单个舰队的到达
func (s *Scheduler) resolveFleet(ctx context.Context, fleet *models.Fleet) error {
	if fleet.TargetStarID == nil {
		return apperrors.Newf(apperrors.ErrDataIntegrity, "航行中舰队%s缺少目标恒星", fleet.Key)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 一次批量加载两端恒星聚合
		starRepo := repository.NewStarRepository(tx)
		stars, err := starRepo.GetStars(ctx, []uint{fleet.StarID, *fleet.TargetStarID})
		if err != nil {
			return err
		}

		var src, dst *models.Star
		for _, star := range stars {
			if star.ID == fleet.StarID {
				src = star
			}
			if star.ID == *fleet.TargetStarID {
				dst = star
			}
		}
		if src == nil || dst == nil {
			return apperrors.Newf(apperrors.ErrStarNotFound, "舰队%s的航线端点恒星缺失", fleet.Key)
		}

		return s.resolver.Resolve(ctx, tx, fleet, src, dst)
	})
}

// Run 调度循环：处理到达、计算下次唤醒、休眠，直到上下文取消
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("世界时钟启动",
		zap.Duration("lookahead", s.lookahead),
		zap.Duration("poll_interval", s.pollInterval),
	)

	for {
		if _, err := s.Tick(ctx); err != nil {
			logger.LogError(err, "到达扫描失败")
		}

		wake, err := s.NextWake(ctx)
		if err != nil {
			logger.LogError(err, "计算下次唤醒时间失败")
			wake = s.clock.Now().Add(s.pollInterval)
		}

		wait := wake.Sub(s.clock.Now())
		if wait < time.Second {
			wait = time.Second
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("世界时钟停止")
			return ctx.Err()
		case <-timer.C:
		}
	}
}
