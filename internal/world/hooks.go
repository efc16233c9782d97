package world

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/galaxy-server/internal/models"
)

// HookContext 到达钩子的执行上下文
type HookContext struct {
	Now time.Time
	// Alerts 钩子产生的警戒事件，由调用方记录
	Alerts []SentryAlert
}

// SentryAlert 哨戒警报：驻留舰队发现敌对舰队抵达
type SentryAlert struct {
	StarKey       string
	SentryFleet   string
	IntruderFleet string
	EmpireID      uint
}

// ShipEffect 舰船设计的到达效果。
// OnArrived在舰队自身到达时触发；OnOtherArrived在其他舰队到达
// 本舰队驻留的恒星时触发。钩子可以修改恒星与舰队状态，
// 但不得移除同一轮遍历中已经访问过的舰队。
type ShipEffect interface {
	OnArrived(hc *HookContext, star *models.Star, arriving *models.Fleet)
	OnOtherArrived(hc *HookContext, star *models.Star, existing, arriving *models.Fleet)
}

// EffectRegistry 按舰船设计ID注册到达效果
type EffectRegistry struct {
	effects map[string][]ShipEffect
}

// NewEffectRegistry 创建效果注册表
func NewEffectRegistry() *EffectRegistry {
	return &EffectRegistry{
		effects: make(map[string][]ShipEffect),
	}
}

// Register 为舰船设计注册到达效果
func (r *EffectRegistry) Register(designID string, effect ShipEffect) {
	r.effects[designID] = append(r.effects[designID], effect)
}

// EffectsFor 查找舰船设计的全部到达效果
func (r *EffectRegistry) EffectsFor(designID string) []ShipEffect {
	return r.effects[designID]
}

// DefaultRegistry 预置标准舰船效果的注册表
func DefaultRegistry() *EffectRegistry {
	r := NewEffectRegistry()
	r.Register("scout", &ScoutEffect{})
	r.Register("sentry", &SentryEffect{})
	return r
}

// BaseEffect 空实现，具体效果只需覆盖自己关心的钩子
type BaseEffect struct{}

// OnArrived 默认无动作
func (BaseEffect) OnArrived(hc *HookContext, star *models.Star, arriving *models.Fleet) {}

// OnOtherArrived 默认无动作
func (BaseEffect) OnOtherArrived(hc *HookContext, star *models.Star, existing, arriving *models.Fleet) {
}

// ScoutEffect 侦察舰效果：到达恒星时生成侦察报告快照
type ScoutEffect struct {
	BaseEffect
}

// scoutSnapshot 侦察报告的序列化内容
type scoutSnapshot struct {
	StarKey  string                `json:"star_key"`
	StarName string                `json:"star_name"`
	Date     time.Time             `json:"date"`
	Fleets   []models.FleetSummary `json:"fleets"`
}

// OnArrived 生成恒星当前状态的侦察快照并挂到恒星的报告集合
func (ScoutEffect) OnArrived(hc *HookContext, star *models.Star, arriving *models.Fleet) {
	snapshot := scoutSnapshot{
		StarKey:  star.Key,
		StarName: star.Name,
		Date:     hc.Now,
	}
	for _, fleet := range star.Fleets {
		snapshot.Fleets = append(snapshot.Fleets, models.FleetSummary{
			FleetKey: fleet.Key,
			DesignID: fleet.DesignID,
			NumShips: fleet.NumShips,
		})
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	star.ScoutReports = append(star.ScoutReports, &models.ScoutReport{
		Key:      uuid.NewString(),
		StarID:   star.ID,
		EmpireID: arriving.EmpireID,
		Date:     hc.Now,
		Report:   data,
	})
}

// SentryEffect 哨戒舰效果：敌对舰队抵达时产生警报
type SentryEffect struct {
	BaseEffect
}

// OnOtherArrived 敌对帝国舰队抵达本舰队驻留的恒星时记录警报
func (SentryEffect) OnOtherArrived(hc *HookContext, star *models.Star, existing, arriving *models.Fleet) {
	if existing.EmpireID == arriving.EmpireID {
		return
	}

	hc.Alerts = append(hc.Alerts, SentryAlert{
		StarKey:       star.Key,
		SentryFleet:   existing.Key,
		IntruderFleet: arriving.Key,
		EmpireID:      existing.EmpireID,
	})
}
