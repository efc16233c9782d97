package alliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/galaxy-server/internal/models"
)

func TestRequiredVotes(t *testing.T) {
	target := uint(42)

	tests := []struct {
		name        string
		memberCount int
		request     *models.AllianceRequest
		expected    int
	}{
		{
			name:        "开除提案_5人联盟_排除提案人与目标",
			memberCount: 5,
			request: &models.AllianceRequest{
				RequestType:     models.RequestKick,
				RequestEmpireID: 1,
				TargetEmpireID:  &target,
			},
			expected: 3, // 名义3，可投票5-2=3，不钳制
		},
		{
			name:        "开除提案_3人联盟_钳制到可投票人数",
			memberCount: 3,
			request: &models.AllianceRequest{
				RequestType:     models.RequestKick,
				RequestEmpireID: 1,
				TargetEmpireID:  &target,
			},
			expected: 1, // 名义3，可投票3-2=1，向下钳制
		},
		{
			name:        "开除提案_2人联盟_钳制到零",
			memberCount: 2,
			request: &models.AllianceRequest{
				RequestType:     models.RequestKick,
				RequestEmpireID: 1,
				TargetEmpireID:  &target,
			},
			expected: 0, // 可投票2-2=0
		},
		{
			name:        "加盟提案_只排除提案人",
			memberCount: 4,
			request: &models.AllianceRequest{
				RequestType:     models.RequestJoin,
				RequestEmpireID: 99,
			},
			expected: 1,
		},
		{
			name:        "退出提案_零门槛",
			memberCount: 5,
			request: &models.AllianceRequest{
				RequestType:     models.RequestLeave,
				RequestEmpireID: 1,
			},
			expected: 0,
		},
		{
			name:        "存款提案_零门槛",
			memberCount: 5,
			request: &models.AllianceRequest{
				RequestType:     models.RequestDepositCash,
				RequestEmpireID: 1,
			},
			expected: 0,
		},
		{
			name:        "取款提案_全额门槛",
			memberCount: 6,
			request: &models.AllianceRequest{
				RequestType:     models.RequestWithdrawCash,
				RequestEmpireID: 1,
			},
			expected: 3,
		},
		{
			name:        "单人联盟_开除无目标重叠也不为负",
			memberCount: 1,
			request: &models.AllianceRequest{
				RequestType:     models.RequestKick,
				RequestEmpireID: 1,
				TargetEmpireID:  &target,
			},
			expected: 0, // 可投票1-2=-1，向上钳制到0
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequiredVotes(tt.memberCount, tt.request)
			assert.Equal(t, tt.expected, got)

			// 结果永远落在[0, totalPossibleVotes]区间
			assert.GreaterOrEqual(t, got, 0)
			if total := TotalPossibleVotes(tt.memberCount, tt.request); total >= 0 {
				assert.LessOrEqual(t, got, total)
			}
		})
	}
}

func TestTotalPossibleVotes_Dedup(t *testing.T) {
	// 提案人与目标相同时，排除集合只扣除一次
	same := uint(1)
	request := &models.AllianceRequest{
		RequestType:     models.RequestKick,
		RequestEmpireID: 1,
		TargetEmpireID:  &same,
	}
	assert.Equal(t, 4, TotalPossibleVotes(5, request))
}
