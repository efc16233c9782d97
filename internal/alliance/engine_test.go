package alliance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/ledger"
	"github.com/wfunc/galaxy-server/internal/models"
	"github.com/wfunc/galaxy-server/internal/repository"
	"gorm.io/gorm"
)

// EngineTestSuite 治理引擎测试套件
type EngineTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *Engine
}

func (suite *EngineTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.engine = NewEngine(suite.db, ledger.New(), DefaultShieldMaxSize)
}

func (suite *EngineTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// findRequest 重新加载提案
func (suite *EngineTestSuite) findRequest(id uint) *models.AllianceRequest {
	var request models.AllianceRequest
	suite.Require().NoError(suite.db.First(&request, id).Error)
	return &request
}

// findEmpire 重新加载帝国
func (suite *EngineTestSuite) findEmpire(id uint) *models.Empire {
	var empire models.Empire
	suite.Require().NoError(suite.db.First(&empire, id).Error)
	return &empire
}

// findAlliance 重新加载联盟
func (suite *EngineTestSuite) findAlliance(id uint) *models.Alliance {
	var alliance models.Alliance
	suite.Require().NoError(suite.db.First(&alliance, id).Error)
	return &alliance
}

// TestEngine_Kick 测试开除提案：5人联盟3票通过后目标被移出
func (suite *EngineTestSuite) TestEngine_Kick() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)
	target := members[1]

	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestKick,
		RequestEmpireID: members[0].ID,
		TargetEmpireID:  &target.ID,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))
	assert.Equal(suite.T(), models.RequestPending, suite.findRequest(request.ID).State)

	// 前两票不足以通过
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[2].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[3].ID, 1))
	assert.Equal(suite.T(), models.RequestPending, suite.findRequest(request.ID).State)

	// 第三票越过门槛（名义3，可投票5-2=3）
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[4].ID, 1))

	found := suite.findRequest(request.ID)
	assert.Equal(suite.T(), models.RequestAccepted, found.State)
	assert.Equal(suite.T(), 3, found.NumVotes)

	// 目标被移出联盟
	kicked := suite.findEmpire(target.ID)
	assert.Nil(suite.T(), kicked.AllianceID)
	assert.Nil(suite.T(), kicked.AllianceRank)
}

// TestEngine_Reject 测试反对票达到门槛后提案被否决
func (suite *EngineTestSuite) TestEngine_Reject() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)

	newName := "改名联盟"
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestChangeName,
		RequestEmpireID: members[0].ID,
		NewName:         &newName,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	// 名义3，可投票5-1=4，门槛保持3
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[1].ID, -1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[2].ID, -1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[3].ID, -1))

	found := suite.findRequest(request.ID)
	assert.Equal(suite.T(), models.RequestRejected, found.State)
	assert.Equal(suite.T(), -3, found.NumVotes)

	// 否决不产生效果
	assert.Equal(suite.T(), "测试联盟", suite.findAlliance(alliance.ID).Name)
}

// TestEngine_VoteOnTerminal 测试对终态提案投票返回状态错误
func (suite *EngineTestSuite) TestEngine_VoteOnTerminal() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 3)

	// 退出提案零门槛，提交即通过
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestLeave,
		RequestEmpireID: members[1].ID,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))
	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(request.ID).State)

	err := suite.engine.CastVote(ctx, request.ID, members[2].ID, 1)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrRequestNotPending))

	err = suite.engine.OnVote(ctx, request.ID)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrRequestNotPending))
}

// TestEngine_RequesterCannotVote 测试提案人与目标不能投票
func (suite *EngineTestSuite) TestEngine_RequesterCannotVote() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 4)
	target := members[1]

	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestKick,
		RequestEmpireID: members[0].ID,
		TargetEmpireID:  &target.ID,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	err := suite.engine.CastVote(ctx, request.ID, members[0].ID, 1)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrVoteNotAllowed))

	err = suite.engine.CastVote(ctx, request.ID, target.ID, -1)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrVoteNotAllowed))
}

// TestEngine_NonMemberCannotVote 测试非成员不能投票
func (suite *EngineTestSuite) TestEngine_NonMemberCannotVote() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 3)
	outsider := repository.SeedEmpire(suite.T(), suite.db, "外部帝国", 1000)

	newName := "新名"
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestChangeName,
		RequestEmpireID: members[0].ID,
		NewName:         &newName,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	err := suite.engine.CastVote(ctx, request.ID, outsider.ID, 1)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrNotAllianceMember))
}

// TestEngine_Join 测试加盟通过后撤回其他联盟的待审加盟提案
func (suite *EngineTestSuite) TestEngine_Join() {
	ctx := context.Background()
	allianceA, membersA := repository.SeedAlliance(suite.T(), suite.db, 3)
	allianceB, _ := repository.SeedAlliance(suite.T(), suite.db, 3)
	applicant := repository.SeedEmpire(suite.T(), suite.db, "求盟帝国", 1000)

	reqA := &models.AllianceRequest{
		AllianceID:      allianceA.ID,
		RequestType:     models.RequestJoin,
		RequestEmpireID: applicant.ID,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, reqA))

	reqB := &models.AllianceRequest{
		AllianceID:      allianceB.ID,
		RequestType:     models.RequestJoin,
		RequestEmpireID: applicant.ID,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, reqB))

	// 加盟门槛1票
	suite.Require().NoError(suite.engine.CastVote(ctx, reqA.ID, membersA[0].ID, 1))

	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(reqA.ID).State)
	assert.Equal(suite.T(), models.RequestWithdrawn, suite.findRequest(reqB.ID).State)

	joined := suite.findEmpire(applicant.ID)
	assert.NotNil(suite.T(), joined.AllianceID)
	assert.Equal(suite.T(), allianceA.ID, *joined.AllianceID)
	assert.Equal(suite.T(), models.RankMember, *joined.AllianceRank)
}

// TestEngine_DepositCash 测试存款：提案人现金转入联盟银行并产生流水
func (suite *EngineTestSuite) TestEngine_DepositCash() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 3)
	depositor := members[1]

	amount := int64(30000)
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestDepositCash,
		RequestEmpireID: depositor.ID,
		Amount:          &amount,
	}
	// 存款零门槛，提交即通过并生效
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))
	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(request.ID).State)

	assert.Equal(suite.T(), int64(70000), suite.findEmpire(depositor.ID).Cash)
	assert.Equal(suite.T(), int64(30000), suite.findAlliance(alliance.ID).BankBalance)

	// 银行流水记录余额前后值
	var bankAudits []models.AllianceBankAudit
	suite.Require().NoError(suite.db.Where("alliance_request_id = ?", request.ID).Find(&bankAudits).Error)
	suite.Require().Len(bankAudits, 1)
	assert.Equal(suite.T(), int64(0), bankAudits[0].AmountBefore)
	assert.Equal(suite.T(), int64(30000), bankAudits[0].AmountAfter)

	// 帝国现金流水同时产生
	var cashAudits []models.CashAudit
	suite.Require().NoError(suite.db.Where("alliance_request_id = ?", request.ID).Find(&cashAudits).Error)
	suite.Require().Len(cashAudits, 1)
	assert.Equal(suite.T(), -amount, cashAudits[0].Amount)
	assert.Equal(suite.T(), models.CashReasonAllianceWithdraw, cashAudits[0].Reason)
}

// TestEngine_DepositCash_Insufficient 测试现金不足时存款被放弃但提案仍为已通过
func (suite *EngineTestSuite) TestEngine_DepositCash_Insufficient() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 3)
	depositor := members[1]

	amount := int64(999999)
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestDepositCash,
		RequestEmpireID: depositor.ID,
		Amount:          &amount,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	// 提案保持已通过状态，但没有任何资金变动
	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(request.ID).State)
	assert.Equal(suite.T(), int64(100000), suite.findEmpire(depositor.ID).Cash)
	assert.Equal(suite.T(), int64(0), suite.findAlliance(alliance.ID).BankBalance)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.AllianceBankAudit{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(0), count)
	suite.Require().NoError(suite.db.Model(&models.CashAudit{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(0), count)
}

// TestEngine_WithdrawCash 测试取款：银行余额转入提案人现金
func (suite *EngineTestSuite) TestEngine_WithdrawCash() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)
	suite.Require().NoError(suite.db.Model(&models.Alliance{}).Where("id = ?", alliance.ID).Update("bank_balance", 50000).Error)

	amount := int64(20000)
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestWithdrawCash,
		RequestEmpireID: members[0].ID,
		Amount:          &amount,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	// 取款门槛3票
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[1].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[2].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[3].ID, 1))

	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(request.ID).State)
	assert.Equal(suite.T(), int64(30000), suite.findAlliance(alliance.ID).BankBalance)
	assert.Equal(suite.T(), int64(120000), suite.findEmpire(members[0].ID).Cash)

	var bankAudits []models.AllianceBankAudit
	suite.Require().NoError(suite.db.Where("alliance_request_id = ?", request.ID).Find(&bankAudits).Error)
	suite.Require().Len(bankAudits, 1)
	assert.Equal(suite.T(), int64(50000), bankAudits[0].AmountBefore)
	assert.Equal(suite.T(), int64(30000), bankAudits[0].AmountAfter)
}

// TestEngine_WithdrawCash_Insufficient 测试银行余额不足时取款被放弃
func (suite *EngineTestSuite) TestEngine_WithdrawCash_Insufficient() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)
	suite.Require().NoError(suite.db.Model(&models.Alliance{}).Where("id = ?", alliance.ID).Update("bank_balance", 100).Error)

	amount := int64(150)
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestWithdrawCash,
		RequestEmpireID: members[0].ID,
		Amount:          &amount,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[1].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[2].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[3].ID, 1))

	// 提案已通过但银行余额不变，提案人现金不变，无流水
	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(request.ID).State)
	assert.Equal(suite.T(), int64(100), suite.findAlliance(alliance.ID).BankBalance)
	assert.Equal(suite.T(), int64(100000), suite.findEmpire(members[0].ID).Cash)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.AllianceBankAudit{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(0), count)
}

// TestEngine_ChangeName 测试改名提案
func (suite *EngineTestSuite) TestEngine_ChangeName() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)

	newName := "永恒星盟"
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestChangeName,
		RequestEmpireID: members[0].ID,
		NewName:         &newName,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[1].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[2].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[3].ID, 1))

	assert.Equal(suite.T(), models.RequestAccepted, suite.findRequest(request.ID).State)
	assert.Equal(suite.T(), "永恒星盟", suite.findAlliance(alliance.ID).Name)
}

// TestEngine_ChangeImage 测试盟徽提案：通过后图片被缩放存储
func (suite *EngineTestSuite) TestEngine_ChangeImage() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)

	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestChangeImage,
		RequestEmpireID: members[0].ID,
		PngImage:        encodeTestPNG(suite.T(), 256, 256),
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[1].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[2].ID, 1))
	suite.Require().NoError(suite.engine.CastVote(ctx, request.ID, members[3].ID, 1))

	found := suite.findAlliance(alliance.ID)
	suite.Require().NotEmpty(found.ShieldImage)

	w, h := decodeSize(suite.T(), found.ShieldImage)
	assert.LessOrEqual(suite.T(), w, DefaultShieldMaxSize)
	assert.LessOrEqual(suite.T(), h, DefaultShieldMaxSize)
}

// TestEngine_WithdrawRequest 测试提案人撤回待审提案
func (suite *EngineTestSuite) TestEngine_WithdrawRequest() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 5)

	newName := "短命提案"
	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestChangeName,
		RequestEmpireID: members[0].ID,
		NewName:         &newName,
	}
	suite.Require().NoError(suite.engine.SubmitRequest(ctx, request))

	// 非提案人不能撤回
	err := suite.engine.WithdrawRequest(ctx, request.ID, members[1].ID)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrRequestNotWithdrawable))

	suite.Require().NoError(suite.engine.WithdrawRequest(ctx, request.ID, members[0].ID))
	assert.Equal(suite.T(), models.RequestWithdrawn, suite.findRequest(request.ID).State)

	// 撤回后不能再投票
	err = suite.engine.CastVote(ctx, request.ID, members[1].ID, 1)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrRequestNotPending))
}

// TestEngine_InvalidRequestType 测试未知提案类型被拒绝
func (suite *EngineTestSuite) TestEngine_InvalidRequestType() {
	ctx := context.Background()
	alliance, members := repository.SeedAlliance(suite.T(), suite.db, 3)

	request := &models.AllianceRequest{
		AllianceID:      alliance.ID,
		RequestType:     models.RequestType("explode"),
		RequestEmpireID: members[0].ID,
	}
	err := suite.engine.SubmitRequest(ctx, request)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrInvalidRequestType))
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
