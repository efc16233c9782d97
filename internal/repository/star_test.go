package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/gorm"
)

// StarRepositoryTestSuite 恒星仓储测试套件
type StarRepositoryTestSuite struct {
	suite.Suite
	db         *gorm.DB
	starRepo   StarRepository
	scoutRepo  ScoutReportRepository
	sitrepRepo SituationReportRepository
}

func (suite *StarRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.starRepo = NewStarRepository(suite.db)
	suite.scoutRepo = NewScoutReportRepository(suite.db)
	suite.sitrepRepo = NewSituationReportRepository(suite.db)
}

func (suite *StarRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestStarRepository_FindByID_Aggregate 测试恒星加载时带出舰队与侦察报告
func (suite *StarRepositoryTestSuite) TestStarRepository_FindByID_Aggregate() {
	ctx := context.Background()
	star := SeedStar(suite.T(), suite.db, "star-agg", "聚合恒星")
	empire := SeedEmpire(suite.T(), suite.db, "恒星帝国", 1000)

	SeedIdleFleet(suite.T(), suite.db, "fleet-a", star.ID, empire.ID, "fighter", 10)
	SeedIdleFleet(suite.T(), suite.db, "fleet-b", star.ID, empire.ID, "scout", 1)

	err := suite.scoutRepo.Create(ctx, &models.ScoutReport{
		Key:      "scout-1",
		StarID:   star.ID,
		EmpireID: empire.ID,
		Date:     time.Now(),
		Report:   []byte("snapshot"),
	})
	assert.NoError(suite.T(), err)

	found, err := suite.starRepo.FindByID(ctx, star.ID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), found.Fleets, 2)
	assert.Len(suite.T(), found.ScoutReports, 1)
	assert.NotNil(suite.T(), found.FindFleet(found.Fleets[0].ID))
}

// TestStarRepository_CombatReport 测试战报JSON列的读写
func (suite *StarRepositoryTestSuite) TestStarRepository_CombatReport() {
	ctx := context.Background()
	star := SeedStar(suite.T(), suite.db, "star-combat", "战场恒星")

	report := &models.CombatReport{
		Key: "combat-1",
		Rounds: []models.CombatRound{
			{
				RoundTime: time.Now(),
				Fleets: []models.FleetSummary{
					{FleetKey: "fleet-x", DesignID: "fighter", NumShips: 8},
				},
			},
		},
	}

	err := suite.starRepo.SetCombatReport(ctx, star.ID, report)
	assert.NoError(suite.T(), err)

	found, err := suite.starRepo.FindByID(ctx, star.ID)
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), found.CombatReport)
	assert.Equal(suite.T(), "combat-1", found.CombatReport.Key)
	assert.True(suite.T(), found.CombatReport.InvolvesFleet("fleet-x"))
	assert.False(suite.T(), found.CombatReport.InvolvesFleet("fleet-y"))

	// 清除战报
	err = suite.starRepo.SetCombatReport(ctx, star.ID, nil)
	assert.NoError(suite.T(), err)

	found, err = suite.starRepo.FindByID(ctx, star.ID)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), found.CombatReport)
}

// TestScoutReportRepository_Order 测试侦察报告按日期倒序返回
func (suite *StarRepositoryTestSuite) TestScoutReportRepository_Order() {
	ctx := context.Background()
	star := SeedStar(suite.T(), suite.db, "star-scout", "侦察恒星")
	empire := SeedEmpire(suite.T(), suite.db, "侦察帝国", 1000)

	base := time.Now()
	for i, key := range []string{"scout-old", "scout-mid", "scout-new"} {
		err := suite.scoutRepo.Create(ctx, &models.ScoutReport{
			Key:      key,
			StarID:   star.ID,
			EmpireID: empire.ID,
			Date:     base.Add(time.Duration(i) * time.Hour),
			Report:   []byte(key),
		})
		assert.NoError(suite.T(), err)
	}

	reports, err := suite.scoutRepo.FindByStarAndEmpire(ctx, star.ID, empire.ID, 0)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), reports, 3)
	assert.Equal(suite.T(), "scout-new", reports[0].Key)
	assert.Equal(suite.T(), "scout-old", reports[2].Key)

	latest, err := suite.scoutRepo.Latest(ctx, star.ID, empire.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "scout-new", latest.Key)
}

// TestScoutReportRepository_Latest_Empty 测试无报告时Latest返回nil
func (suite *StarRepositoryTestSuite) TestScoutReportRepository_Latest_Empty() {
	ctx := context.Background()
	star := SeedStar(suite.T(), suite.db, "star-empty", "空恒星")

	latest, err := suite.scoutRepo.Latest(ctx, star.ID, 99999)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), latest)
}

// TestSituationReportRepository_Create 测试战况通报的写入与读取
func (suite *StarRepositoryTestSuite) TestSituationReportRepository_Create() {
	ctx := context.Background()
	star := SeedStar(suite.T(), suite.db, "star-sitrep", "通报恒星")
	empire := SeedEmpire(suite.T(), suite.db, "通报帝国", 1000)

	report := &models.SituationReport{
		EmpireID:    empire.ID,
		StarID:      star.ID,
		ReportTime:  time.Now(),
		PlanetIndex: -1,
		MoveComplete: &models.MoveCompleteRecord{
			FleetKey:      "fleet-arrived",
			FleetDesignID: "scout",
			NumShips:      1,
		},
	}
	err := suite.sitrepRepo.Create(ctx, report)
	assert.NoError(suite.T(), err)

	pagination := NewPagination(1, 10)
	reports, err := suite.sitrepRepo.FindByEmpire(ctx, empire.ID, pagination)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), reports, 1)
	assert.NotNil(suite.T(), reports[0].MoveComplete)
	assert.Equal(suite.T(), "fleet-arrived", reports[0].MoveComplete.FleetKey)
	assert.Nil(suite.T(), reports[0].FleetUnderAttack)
}

func TestStarRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(StarRepositoryTestSuite))
}
