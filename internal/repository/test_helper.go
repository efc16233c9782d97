package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/galaxy-server/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		// 帝国与现金流水
		&models.Empire{},
		&models.CashAudit{},

		// 联盟治理
		&models.Alliance{},
		&models.AllianceRequest{},
		&models.AllianceVote{},
		&models.AllianceBankAudit{},

		// 星图
		&models.Star{},
		&models.Fleet{},
		&models.ScoutReport{},

		// 战况通报
		&models.SituationReport{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedAlliance 创建测试联盟及指定数量的成员帝国
func SeedAlliance(t *testing.T, db *gorm.DB, memberCount int) (*models.Alliance, []*models.Empire) {
	alliance := &models.Alliance{
		Name:        "测试联盟",
		BankBalance: 0,
	}
	require.NoError(t, db.Create(alliance).Error)

	empires := make([]*models.Empire, 0, memberCount)
	for i := 0; i < memberCount; i++ {
		rank := models.RankMember
		if i == 0 {
			rank = models.RankLeader
		}
		empire := &models.Empire{
			Name:         "帝国" + string(rune('A'+i)),
			Cash:         100000,
			AllianceID:   &alliance.ID,
			AllianceRank: &rank,
		}
		require.NoError(t, db.Create(empire).Error)
		empires = append(empires, empire)
	}

	return alliance, empires
}

// SeedEmpire 创建无联盟归属的测试帝国
func SeedEmpire(t *testing.T, db *gorm.DB, name string, cash int64) *models.Empire {
	empire := &models.Empire{
		Name: name,
		Cash: cash,
	}
	require.NoError(t, db.Create(empire).Error)
	return empire
}

// SeedStar 创建测试恒星
func SeedStar(t *testing.T, db *gorm.DB, key, name string) *models.Star {
	star := &models.Star{
		Key:  key,
		Name: name,
	}
	require.NoError(t, db.Create(star).Error)
	return star
}

// SeedMovingFleet 创建航行中的测试舰队
func SeedMovingFleet(t *testing.T, db *gorm.DB, key string, srcStarID, dstStarID, empireID uint, eta time.Time) *models.Fleet {
	fleet := &models.Fleet{
		Key:          key,
		StarID:       srcStarID,
		TargetStarID: &dstStarID,
		EmpireID:     empireID,
		DesignID:     "fighter",
		NumShips:     10,
		State:        models.FleetMoving,
		ETA:          &eta,
	}
	require.NoError(t, db.Create(fleet).Error)
	return fleet
}

// SeedIdleFleet 创建驻留中的测试舰队
func SeedIdleFleet(t *testing.T, db *gorm.DB, key string, starID, empireID uint, designID string, numShips float64) *models.Fleet {
	fleet := &models.Fleet{
		Key:      key,
		StarID:   starID,
		EmpireID: empireID,
		DesignID: designID,
		NumShips: numShips,
		State:    models.FleetIdle,
	}
	require.NoError(t, db.Create(fleet).Error)
	return fleet
}
