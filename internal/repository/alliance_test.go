package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/galaxy-server/internal/errors"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
)

// AllianceRepositoryTestSuite 联盟仓储测试套件
type AllianceRepositoryTestSuite struct {
	suite.Suite
	db           *gorm.DB
	allianceRepo AllianceRepository
}

func (suite *AllianceRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.allianceRepo = NewAllianceRepository(suite.db)
}

func (suite *AllianceRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestAllianceRepository_CreditBank 测试银行入账
func (suite *AllianceRepositoryTestSuite) TestAllianceRepository_CreditBank() {
	ctx := context.Background()
	alliance, _ := SeedAlliance(suite.T(), suite.db, 2)

	err := suite.allianceRepo.CreditBank(ctx, alliance.ID, 5000)
	assert.NoError(suite.T(), err)

	found, err := suite.allianceRepo.FindByID(ctx, alliance.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5000), found.BankBalance)
}

// TestAllianceRepository_DebitBank 测试银行出账
func (suite *AllianceRepositoryTestSuite) TestAllianceRepository_DebitBank() {
	ctx := context.Background()
	alliance, _ := SeedAlliance(suite.T(), suite.db, 2)

	err := suite.allianceRepo.CreditBank(ctx, alliance.ID, 5000)
	assert.NoError(suite.T(), err)

	err = suite.allianceRepo.DebitBank(ctx, alliance.ID, 3000)
	assert.NoError(suite.T(), err)

	found, err := suite.allianceRepo.FindByID(ctx, alliance.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2000), found.BankBalance)
}

// TestAllianceRepository_DebitBank_Insufficient 测试余额不足时出账被拒绝
func (suite *AllianceRepositoryTestSuite) TestAllianceRepository_DebitBank_Insufficient() {
	ctx := context.Background()
	alliance, _ := SeedAlliance(suite.T(), suite.db, 2)

	err := suite.allianceRepo.CreditBank(ctx, alliance.ID, 1000)
	assert.NoError(suite.T(), err)

	err = suite.allianceRepo.DebitBank(ctx, alliance.ID, 2000)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrInsufficientBank))

	// 余额保持不变
	found, err := suite.allianceRepo.FindByID(ctx, alliance.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1000), found.BankBalance)
}

// TestAllianceRepository_UpdateName 测试更新联盟名称
func (suite *AllianceRepositoryTestSuite) TestAllianceRepository_UpdateName() {
	ctx := context.Background()
	alliance, _ := SeedAlliance(suite.T(), suite.db, 2)

	err := suite.allianceRepo.UpdateName(ctx, alliance.ID, "新生联盟")
	assert.NoError(suite.T(), err)

	found, err := suite.allianceRepo.FindByID(ctx, alliance.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "新生联盟", found.Name)
}

// TestAllianceRepository_UpdateShieldImage 测试更新盟徽
func (suite *AllianceRepositoryTestSuite) TestAllianceRepository_UpdateShieldImage() {
	ctx := context.Background()
	alliance, _ := SeedAlliance(suite.T(), suite.db, 2)

	png := []byte{0x89, 0x50, 0x4e, 0x47}
	err := suite.allianceRepo.UpdateShieldImage(ctx, alliance.ID, png)
	assert.NoError(suite.T(), err)

	found, err := suite.allianceRepo.FindByID(ctx, alliance.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), png, found.ShieldImage)
}

// TestAllianceRepository_BankAudit 测试银行流水
func (suite *AllianceRepositoryTestSuite) TestAllianceRepository_BankAudit() {
	ctx := context.Background()
	alliance, members := SeedAlliance(suite.T(), suite.db, 2)

	audit := &models.AllianceBankAudit{
		AllianceID:        alliance.ID,
		AllianceRequestID: 1,
		EmpireID:          members[0].ID,
		Date:              time.Now(),
		AmountBefore:      0,
		AmountAfter:       5000,
	}
	err := suite.allianceRepo.CreateBankAudit(ctx, audit)
	assert.NoError(suite.T(), err)

	pagination := NewPagination(1, 10)
	audits, err := suite.allianceRepo.FindBankAudits(ctx, alliance.ID, pagination)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), audits, 1)
	assert.Equal(suite.T(), int64(0), audits[0].AmountBefore)
	assert.Equal(suite.T(), int64(5000), audits[0].AmountAfter)
}

func TestAllianceRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(AllianceRepositoryTestSuite))
}
