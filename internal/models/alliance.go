package models

import (
	"time"
)

// RequestType 联盟提案类型
type RequestType string

const (
	RequestJoin         RequestType = "join"          // 加入联盟
	RequestLeave        RequestType = "leave"         // 退出联盟
	RequestKick         RequestType = "kick"          // 开除成员
	RequestDepositCash  RequestType = "deposit_cash"  // 存入联盟银行
	RequestWithdrawCash RequestType = "withdraw_cash" // 从联盟银行提取
	RequestChangeImage  RequestType = "change_image"  // 更换盟徽
	RequestChangeName   RequestType = "change_name"   // 更改联盟名称
)

// 各提案类型的名义通过票数（可能超过实际可投票人数，计算时会被钳制）
var requiredVotes = map[RequestType]int{
	RequestJoin:         1,
	RequestLeave:        0,
	RequestKick:         3,
	RequestDepositCash:  0,
	RequestWithdrawCash: 3,
	RequestChangeImage:  3,
	RequestChangeName:   3,
}

// RequiredVotes 提案类型的名义通过票数
func (t RequestType) RequiredVotes() int {
	if n, ok := requiredVotes[t]; ok {
		return n
	}
	return 0
}

// IsValid 检查提案类型是否合法
func (t RequestType) IsValid() bool {
	_, ok := requiredVotes[t]
	return ok
}

// RequestState 提案状态
type RequestState string

const (
	RequestPending   RequestState = "pending"   // 投票中
	RequestAccepted  RequestState = "accepted"  // 已通过
	RequestRejected  RequestState = "rejected"  // 已否决
	RequestWithdrawn RequestState = "withdrawn" // 已撤回
)

// IsTerminal 检查状态是否为终态（终态后提案不可再变更）
func (s RequestState) IsTerminal() bool {
	return s == RequestAccepted || s == RequestRejected || s == RequestWithdrawn
}

// Alliance 联盟表
type Alliance struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	BankBalance int64  `gorm:"default:0" json:"bank_balance"` // 联盟银行余额（分）
	ShieldImage []byte `gorm:"type:blob" json:"-"`            // 盟徽PNG数据
}

// TableName 指定Alliance表名
func (Alliance) TableName() string {
	return "alliances"
}

// AllianceRequest 联盟提案表
type AllianceRequest struct {
	BaseModel
	AllianceID      uint         `gorm:"not null;index" json:"alliance_id"`
	RequestType     RequestType  `gorm:"size:50;not null;index" json:"request_type"`
	RequestEmpireID uint         `gorm:"not null;index" json:"request_empire_id"`
	TargetEmpireID  *uint        `gorm:"index" json:"target_empire_id,omitempty"`
	Amount          *int64       `json:"amount,omitempty"`
	NewName         *string      `gorm:"size:100" json:"new_name,omitempty"`
	PngImage        []byte       `gorm:"type:blob" json:"-"`
	NumVotes        int          `gorm:"default:0" json:"num_votes"` // 有符号票数（正为赞成）
	State           RequestState `gorm:"size:20;default:'pending';index" json:"state"`
}

// TableName 指定AllianceRequest表名
func (AllianceRequest) TableName() string {
	return "alliance_requests"
}

// IsPending 检查提案是否在投票中
func (r *AllianceRequest) IsPending() bool {
	return r.State == RequestPending
}

// ExcludedEmpireIDs 不可投票的帝国（提案人与目标，去重）
func (r *AllianceRequest) ExcludedEmpireIDs() []uint {
	ids := []uint{r.RequestEmpireID}
	if r.TargetEmpireID != nil && *r.TargetEmpireID != r.RequestEmpireID {
		ids = append(ids, *r.TargetEmpireID)
	}
	return ids
}

// CanVote 检查帝国是否可以对本提案投票
func (r *AllianceRequest) CanVote(empireID uint) bool {
	for _, excluded := range r.ExcludedEmpireIDs() {
		if empireID == excluded {
			return false
		}
	}
	return true
}

// AllianceVote 提案选票表（每帝国每提案至多一票，重投覆盖旧票）
type AllianceVote struct {
	BaseModel
	RequestID uint `gorm:"not null;uniqueIndex:idx_request_empire" json:"request_id"`
	EmpireID  uint `gorm:"not null;uniqueIndex:idx_request_empire" json:"empire_id"`
	Vote      int  `gorm:"not null" json:"vote"` // +1赞成 / -1反对
}

// TableName 指定AllianceVote表名
func (AllianceVote) TableName() string {
	return "alliance_votes"
}

// AllianceBankAudit 联盟银行流水表（只增不改）
type AllianceBankAudit struct {
	BaseModel
	AllianceID        uint      `gorm:"not null;index" json:"alliance_id"`
	AllianceRequestID uint      `gorm:"not null;index" json:"alliance_request_id"`
	EmpireID          uint      `gorm:"not null;index" json:"empire_id"`
	Date              time.Time `json:"date"`
	AmountBefore      int64     `json:"amount_before"`
	AmountAfter       int64     `json:"amount_after"`
}

// TableName 指定AllianceBankAudit表名
func (AllianceBankAudit) TableName() string {
	return "alliance_bank_balance_audit"
}
