// Package mysql 提供 Repository 层聚合与构造
package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"nutri_chat_server/internal/dao/mysql/conversation"
	"nutri_chat_server/internal/dao/mysql/message"
	"nutri_chat_server/internal/model"
)

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	db           *gorm.DB               // GORM 数据库实例
	Conversation ConversationRepository // 咨询会话 Repository
	Message      MessageRepository      // 消息 Repository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Conversation: conversation.NewConversationRepository(db),
		Message:      message.NewMessageRepository(db),
	}
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
// fn 内只能使用 txRepos，否则在单连接的数据库上会互相等待
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// AppendMessage 在事务中更新会话摘要并写入消息，会话已结束时返回 false 且不写入
// 先更新会话行再插入消息：会话行锁让同一会话的写入串行，自增 id 的顺序与提交顺序一致，
// 按 id 游标分页的读者不会跳过晚提交的小 id
func (r *Repositories) AppendMessage(msg *model.Message, summary string, at time.Time) (bool, error) {
	appended := false
	err := r.Transaction(func(tx *Repositories) error {
		ok, err := tx.Conversation.TouchLastMessage(msg.ConversationUuid, summary, at)
		if err != nil || !ok {
			return err
		}
		if err := tx.Message.Create(msg); err != nil {
			return err
		}
		appended = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return appended, nil
}

// Ping 检查数据库连接，用于健康检查
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池
func (r *Repositories) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
