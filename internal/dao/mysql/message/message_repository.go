// Package message 提供消息相关数据访问层的具体实现
// 本文件实现 MessageRepository 接口，处理消息相关的数据库操作
package message

import (
	"nutri_chat_server/internal/dao/mysql/internal"
	"nutri_chat_server/internal/model"

	"gorm.io/gorm"
)

// messageRepository MessageRepository 接口的实现
type messageRepository struct {
	db *gorm.DB // GORM 数据库实例
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) *messageRepository {
	return &messageRepository{db: db}
}

// Create 追加一条消息，写入后 message.ID 即存储序号
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return internal.WrapDBError(err, "创建消息")
	}
	return nil
}

// FindByConversation 按存储顺序查询会话消息
// afterId: 游标，只返回 ID 大于它的消息；limit <= 0 时返回全部
func (r *messageRepository) FindByConversation(conversationUuid string, afterId uint, limit int) ([]model.Message, error) {
	var messages []model.Message
	query := r.db.Where("conversation_uuid = ? AND id > ?", conversationUuid, afterId).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询消息 conversation=%s", conversationUuid)
	}
	return messages, nil
}
