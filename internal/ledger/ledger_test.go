package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/galaxy-server/internal/models"
	"github.com/wfunc/galaxy-server/internal/repository"
	"gorm.io/gorm"
)

// LedgerTestSuite 账本测试套件
type LedgerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	ledger *Ledger
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.ledger = New()
}

func (suite *LedgerTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// createEmpire 创建测试帝国
func (suite *LedgerTestSuite) createEmpire(cash int64) *models.Empire {
	empire := &models.Empire{Name: "账本帝国", Cash: cash}
	suite.Require().NoError(suite.db.Create(empire).Error)
	return empire
}

// TestLedger_Credit 测试入账并产生流水
func (suite *LedgerTestSuite) TestLedger_Credit() {
	ctx := context.Background()
	empire := suite.createEmpire(1000)

	ok, err := suite.ledger.Adjust(ctx, suite.db, empire.ID, 500, models.CashReasonAllianceWithdraw, 7)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	var found models.Empire
	suite.Require().NoError(suite.db.First(&found, empire.ID).Error)
	assert.Equal(suite.T(), int64(1500), found.Cash)

	var audits []models.CashAudit
	suite.Require().NoError(suite.db.Where("empire_id = ?", empire.ID).Find(&audits).Error)
	assert.Len(suite.T(), audits, 1)
	assert.Equal(suite.T(), int64(500), audits[0].Amount)
	assert.Equal(suite.T(), int64(1000), audits[0].BalanceBefore)
	assert.Equal(suite.T(), int64(1500), audits[0].BalanceAfter)
	assert.NotEmpty(suite.T(), audits[0].OrderNo)
	assert.Equal(suite.T(), uint(7), *audits[0].AllianceRequestID)
	assert.False(suite.T(), audits[0].IsDebit())
}

// TestLedger_Debit 测试扣款并产生流水
func (suite *LedgerTestSuite) TestLedger_Debit() {
	ctx := context.Background()
	empire := suite.createEmpire(1000)

	ok, err := suite.ledger.Adjust(ctx, suite.db, empire.ID, -300, models.CashReasonFleetBuild, 0)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	var found models.Empire
	suite.Require().NoError(suite.db.First(&found, empire.ID).Error)
	assert.Equal(suite.T(), int64(700), found.Cash)

	var audits []models.CashAudit
	suite.Require().NoError(suite.db.Where("empire_id = ?", empire.ID).Find(&audits).Error)
	assert.Len(suite.T(), audits, 1)
	assert.True(suite.T(), audits[0].IsDebit())
	assert.Nil(suite.T(), audits[0].AllianceRequestID)
}

// TestLedger_Debit_Insufficient 测试余额不足时扣款无任何副作用
func (suite *LedgerTestSuite) TestLedger_Debit_Insufficient() {
	ctx := context.Background()
	empire := suite.createEmpire(200)

	ok, err := suite.ledger.Adjust(ctx, suite.db, empire.ID, -500, models.CashReasonAllianceWithdraw, 3)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// 余额不变且没有流水
	var found models.Empire
	suite.Require().NoError(suite.db.First(&found, empire.ID).Error)
	assert.Equal(suite.T(), int64(200), found.Cash)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.CashAudit{}).Where("empire_id = ?", empire.ID).Count(&count).Error)
	assert.Equal(suite.T(), int64(0), count)
}

// TestLedger_ZeroAmount 测试零额变更为空操作
func (suite *LedgerTestSuite) TestLedger_ZeroAmount() {
	ctx := context.Background()
	empire := suite.createEmpire(1000)

	ok, err := suite.ledger.Adjust(ctx, suite.db, empire.ID, 0, models.CashReasonTax, 0)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	var count int64
	suite.Require().NoError(suite.db.Model(&models.CashAudit{}).Count(&count).Error)
	assert.Equal(suite.T(), int64(0), count)
}

// TestLedger_Balance 测试余额读取
func (suite *LedgerTestSuite) TestLedger_Balance() {
	ctx := context.Background()
	empire := suite.createEmpire(4200)

	balance, err := suite.ledger.Balance(ctx, suite.db, empire.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(4200), balance)

	_, err = suite.ledger.Balance(ctx, suite.db, 99999)
	assert.Error(suite.T(), err)
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}
