package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// FleetState 舰队移动状态
type FleetState string

const (
	FleetMoving FleetState = "moving" // 航行中
	FleetIdle   FleetState = "idle"   // 驻留
)

// Star 恒星表
type Star struct {
	BaseModel
	Key            string        `gorm:"uniqueIndex;size:64;not null" json:"key"`
	Name           string        `gorm:"size:100" json:"name"`
	LastSimulation *time.Time    `json:"last_simulation,omitempty"`
	CombatReport   *CombatReport `gorm:"type:json" json:"combat_report,omitempty"` // 当前活跃战报（至多一个）

	// 聚合关联：恒星的舰队与侦察报告
	Fleets       []*Fleet       `gorm:"foreignKey:StarID" json:"fleets,omitempty"`
	ScoutReports []*ScoutReport `gorm:"foreignKey:StarID" json:"scout_reports,omitempty"`
}

// TableName 指定Star表名
func (Star) TableName() string {
	return "stars"
}

// FindFleet 在恒星舰队集合中查找舰队
func (s *Star) FindFleet(fleetID uint) *Fleet {
	for _, f := range s.Fleets {
		if f.ID == fleetID {
			return f
		}
	}
	return nil
}

// RemoveFleet 从恒星舰队集合中移除舰队
func (s *Star) RemoveFleet(fleetID uint) *Fleet {
	for i, f := range s.Fleets {
		if f.ID == fleetID {
			s.Fleets = append(s.Fleets[:i], s.Fleets[i+1:]...)
			return f
		}
	}
	return nil
}

// LatestScoutReport 最近一份侦察报告（集合按加载顺序，取最后一份）
func (s *Star) LatestScoutReport() *ScoutReport {
	if len(s.ScoutReports) == 0 {
		return nil
	}
	return s.ScoutReports[len(s.ScoutReports)-1]
}

// Fleet 舰队表
type Fleet struct {
	BaseModel
	Key          string     `gorm:"uniqueIndex;size:64;not null" json:"key"`
	StarID       uint       `gorm:"not null;index" json:"star_id"`
	TargetStarID *uint      `gorm:"index" json:"target_star_id,omitempty"`
	EmpireID     uint       `gorm:"not null;index" json:"empire_id"`
	DesignID     string     `gorm:"size:50;not null" json:"design_id"`
	NumShips     float64    `gorm:"default:0" json:"num_ships"`
	State        FleetState `gorm:"size:20;default:'idle';index" json:"state"`
	ETA          *time.Time `gorm:"index" json:"eta,omitempty"`
}

// TableName 指定Fleet表名
func (Fleet) TableName() string {
	return "fleets"
}

// Idle 舰队到达后转为驻留状态
func (f *Fleet) Idle() {
	f.State = FleetIdle
	f.TargetStarID = nil
	f.ETA = nil
}

// IsMoving 检查舰队是否在航行中
func (f *Fleet) IsMoving() bool {
	return f.State == FleetMoving
}

// ScoutReport 侦察报告表
type ScoutReport struct {
	BaseModel
	Key      string    `gorm:"uniqueIndex;size:64;not null" json:"key"`
	StarID   uint      `gorm:"not null;index" json:"star_id"`
	EmpireID uint      `gorm:"not null;index" json:"empire_id"`
	Date     time.Time `json:"date"`
	Report   []byte    `gorm:"type:blob" json:"-"` // 序列化后的报告快照
}

// TableName 指定ScoutReport表名
func (ScoutReport) TableName() string {
	return "scout_reports"
}

// CombatReport 战报（作为JSON列存储在恒星上）
type CombatReport struct {
	Key    string        `json:"key"`
	Rounds []CombatRound `json:"rounds"`
}

// CombatRound 战报回合
type CombatRound struct {
	RoundTime time.Time      `json:"round_time"`
	Fleets    []FleetSummary `json:"fleets"`
}

// FleetSummary 战报中的舰队摘要
type FleetSummary struct {
	FleetKey string  `json:"fleet_key"`
	DesignID string  `json:"design_id"`
	NumShips float64 `json:"num_ships"`
}

// InvolvesFleet 检查舰队是否出现在战报的任一回合中
func (r *CombatReport) InvolvesFleet(fleetKey string) bool {
	if r == nil {
		return false
	}
	for _, round := range r.Rounds {
		for _, summary := range round.Fleets {
			if summary.FleetKey == fleetKey {
				return true
			}
		}
	}
	return false
}

// Value 实现driver.Valuer接口
func (r *CombatReport) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan 实现sql.Scanner接口
func (r *CombatReport) Scan(value interface{}) error {
	return scanJSON(value, r)
}
