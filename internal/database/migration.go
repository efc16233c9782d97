package database

import (
	"fmt"

	"github.com/wfunc/galaxy-server/internal/logger"
	"github.com/wfunc/galaxy-server/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 定义需要迁移的模型
	migrationModels := []interface{}{
		// 帝国与现金流水
		&models.Empire{},
		&models.CashAudit{},

		// 联盟治理相关
		&models.Alliance{},
		&models.AllianceRequest{},
		&models.AllianceVote{},
		&models.AllianceBankAudit{},

		// 星图相关
		&models.Star{},
		&models.Fleet{},
		&models.ScoutReport{},

		// 战况通报
		&models.SituationReport{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite迁移期间关闭外键约束，避免重建表时的问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := []string{
		// 舰队到达扫描按 (state, eta) 查询
		"CREATE INDEX IF NOT EXISTS idx_fleets_state_eta ON fleets(state, eta)",

		// 提案按 (alliance_id, state) 查询
		"CREATE INDEX IF NOT EXISTS idx_alliance_requests_alliance_state ON alliance_requests(alliance_id, state)",

		// 侦察报告按 (star_id, date) 倒序查询
		"CREATE INDEX IF NOT EXISTS idx_scout_reports_star_date ON scout_reports(star_id, date)",

		// 现金流水按 (empire_id, created_at) 查询
		"CREATE INDEX IF NOT EXISTS idx_cash_audits_empire_created ON cash_audits(empire_id, created_at)",

		// 战况通报按 (empire_id, report_time) 查询
		"CREATE INDEX IF NOT EXISTS idx_situation_reports_empire_time ON situation_reports(empire_id, report_time)",
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", idx), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
