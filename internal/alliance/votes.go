package alliance

import (
	"github.com/wfunc/galaxy-server/internal/models"
)

// TotalPossibleVotes 计算提案的可投票人数。
// 提案人与目标帝国（若有）被排除在外，两者相同时只扣除一次。
func TotalPossibleVotes(memberCount int, request *models.AllianceRequest) int {
	return memberCount - len(request.ExcludedEmpireIDs())
}

// RequiredVotes 计算提案的实际通过票数。
// 名义票数超过可投票人数时向下钳制，结果永远不小于0。
func RequiredVotes(memberCount int, request *models.AllianceRequest) int {
	required := request.RequestType.RequiredVotes()

	totalPossible := TotalPossibleVotes(memberCount, request)
	if required > totalPossible {
		required = totalPossible
	}
	if required < 0 {
		required = 0
	}

	return required
}
