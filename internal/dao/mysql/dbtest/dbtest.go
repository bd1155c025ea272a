// Package dbtest 为测试提供基于内存 SQLite（或环境变量指定的 MySQL）的 Repositories
package dbtest

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nutri_chat_server/internal/dao/mysql"
)

var seq atomic.Int64

// New 创建一个独立的内存数据库并完成迁移
// 连接数限制为 1，事务之间串行执行，与 MySQL 行锁下的条件更新语义一致
func New(t testing.TB) *mysql.Repositories {
	t.Helper()
	return mysql.NewRepositories(NewDB(t))
}

// NewDB 与 New 相同，但返回 *gorm.DB，供需要注册回调的测试使用
// 连接随测试结束关闭
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := mysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// MySQLDSNEnv 真实 MySQL 的 DSN 环境变量，未设置时 NewMySQL 跳过测试
const MySQLDSNEnv = "NUTRI_TEST_MYSQL_DSN"

// NewMySQL 连接 MySQLDSNEnv 指向的数据库并完成迁移
// 连接池不限制并发，条件更新在 InnoDB 行锁下真实竞争
func NewMySQL(t testing.TB) *mysql.Repositories {
	t.Helper()
	dsn := os.Getenv(MySQLDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", MySQLDSNEnv)
	}
	db, err := gorm.Open(mysqldriver.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := mysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return mysql.NewRepositories(db)
}
