package models

import (
	"time"
)

// 联盟成员等级
const (
	RankMember = 1 // 普通成员
	RankLeader = 2 // 盟主（保留）
)

// Empire 帝国表
type Empire struct {
	BaseModel
	Name         string `gorm:"size:100;not null" json:"name"`
	Cash         int64  `gorm:"default:0" json:"cash"` // 现金余额（分）
	AllianceID   *uint  `gorm:"index" json:"alliance_id,omitempty"`
	AllianceRank *int   `json:"alliance_rank,omitempty"`

	// 关联（注意：不直接嵌入 Alliance，避免循环依赖）
	// 查询时使用 Preload("Alliance") 来加载联盟信息
}

// TableName 指定Empire表名
func (Empire) TableName() string {
	return "empires"
}

// IsAllianceMember 检查帝国是否属于指定联盟
func (e *Empire) IsAllianceMember(allianceID uint) bool {
	return e.AllianceID != nil && *e.AllianceID == allianceID
}

// 现金流水原因
const (
	CashReasonAllianceWithdraw = "alliance_withdraw" // 联盟存取款（双向共用）
	CashReasonFleetBuild       = "fleet_build"       // 舰队建造
	CashReasonTax              = "tax"               // 税收
)

// CashAudit 帝国现金流水表（只增不改）
type CashAudit struct {
	BaseModel
	EmpireID          uint    `gorm:"not null;index" json:"empire_id"`
	OrderNo           string  `gorm:"uniqueIndex;size:64;not null" json:"order_no"`
	Reason            string  `gorm:"size:50;not null;index" json:"reason"`
	Amount            int64   `gorm:"not null" json:"amount"`
	BalanceBefore     int64   `json:"balance_before"`
	BalanceAfter      int64   `json:"balance_after"`
	AllianceRequestID *uint   `gorm:"index" json:"alliance_request_id,omitempty"`
	Metadata          JSONMap `gorm:"type:json" json:"metadata"`
}

// TableName 指定CashAudit表名
func (CashAudit) TableName() string {
	return "cash_audits"
}

// IsDebit 检查是否为扣款流水
func (a *CashAudit) IsDebit() bool {
	return a.Amount < 0
}

// AuditTime 流水时间
func (a *CashAudit) AuditTime() time.Time {
	return a.CreatedAt
}
