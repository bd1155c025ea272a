// Package mysql 提供数据访问层的初始化
// 负责建立 MySQL 连接、自动迁移表结构、初始化 Repository 层
package mysql

import (
	"fmt"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/model"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init 根据配置建立数据库连接、迁移表结构并返回 Repository 实例
// DSN 中的 clientFoundRows=true 让 UPDATE 返回匹配行数，条件更新据此判断是否命中
func Init(cfg config.MysqlConfig) (*Repositories, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&clientFoundRows=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DatabaseName,
	)

	db, err := gorm.Open(mysqldriver.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return NewRepositories(db), nil
}

// Migrate 自动迁移表结构
// 如果表不存在则创建，如果字段变更则更新结构，不会删除已有字段或数据
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Conversation{},      // 咨询会话表
		&model.ConversationCheck{}, // 营养师查看记录表
		&model.Message{},           // 消息表
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
