package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SituationReport 战况通报表（按事件生成，只增不改）
type SituationReport struct {
	BaseModel
	EmpireID    uint                   `gorm:"not null;index" json:"empire_id"`
	StarID      uint                   `gorm:"not null;index" json:"star_id"`
	ReportTime  time.Time              `json:"report_time"`
	PlanetIndex int                    `gorm:"default:-1" json:"planet_index"` // 非行星事件为-1
	MoveComplete     *MoveCompleteRecord     `gorm:"type:json" json:"move_complete,omitempty"`
	FleetUnderAttack *FleetUnderAttackRecord `gorm:"type:json" json:"fleet_under_attack,omitempty"`
}

// TableName 指定SituationReport表名
func (SituationReport) TableName() string {
	return "situation_reports"
}

// MoveCompleteRecord 舰队抵达通报
type MoveCompleteRecord struct {
	FleetKey       string  `json:"fleet_key"`
	FleetDesignID  string  `json:"fleet_design_id"`
	NumShips       float64 `json:"num_ships"`
	ScoutReportKey string  `json:"scout_report_key,omitempty"`
}

// Value 实现driver.Valuer接口
func (r *MoveCompleteRecord) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan 实现sql.Scanner接口
func (r *MoveCompleteRecord) Scan(value interface{}) error {
	return scanJSON(value, r)
}

// FleetUnderAttackRecord 舰队遇袭通报
type FleetUnderAttackRecord struct {
	CombatReportKey string  `json:"combat_report_key"`
	FleetKey        string  `json:"fleet_key"`
	FleetDesignID   string  `json:"fleet_design_id"`
	NumShips        float64 `json:"num_ships"`
}

// Value 实现driver.Valuer接口
func (r *FleetUnderAttackRecord) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan 实现sql.Scanner接口
func (r *FleetUnderAttackRecord) Scan(value interface{}) error {
	return scanJSON(value, r)
}

// scanJSON 从数据库列反序列化JSON值
func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("不支持的JSON列类型")
	}

	return json.Unmarshal(data, dest)
}
