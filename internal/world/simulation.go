package world

import (
	"time"

	"github.com/wfunc/galaxy-server/internal/models"
)

// Simulator 恒星模拟器。
// 将恒星的时间相关状态（产出、战斗衰减等）推进到指定时刻，
// 可能改变舰队数量、产生或清除战报。外部模拟引擎作为黑盒接入。
type Simulator interface {
	Simulate(star *models.Star, now time.Time) error
}

// NoopSimulator 空模拟器：只记录模拟时间戳，不改变其他状态。
// 在外部模拟引擎不可用时作为占位实现。
type NoopSimulator struct{}

// Simulate 仅更新恒星的最后模拟时间
func (NoopSimulator) Simulate(star *models.Star, now time.Time) error {
	t := now
	star.LastSimulation = &t
	return nil
}
