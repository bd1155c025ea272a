// Package mysql 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的模块中
package mysql

import (
	"time"

	"nutri_chat_server/internal/model"
)

// ConversationRepository 咨询会话数据访问接口
// 状态流转方法均为条件更新，返回值 bool 表示本次调用是否生效
type ConversationRepository interface {
	// Create 创建会话，同主题未结束会话冲突时返回 CodeDuplicateTopic
	Create(conversation *model.Conversation) error
	// FindByUuid 根据 UUID 查找会话
	FindByUuid(uuid string) (*model.Conversation, error)
	// FindOpenBySubjectAndTopic 查找用户在该主题下未结束的会话
	FindOpenBySubjectAndTopic(subjectUserId, topic string) (*model.Conversation, error)
	// FindBySubject 查找用户发起的全部会话
	FindBySubject(subjectUserId string) ([]model.Conversation, error)
	// FindByState 按状态查找会话
	FindByState(state int8) ([]model.Conversation, error)
	// FindCheckedByAgent 查找营养师查看过且仍为 checked 的会话
	FindCheckedByAgent(agentId string) ([]model.Conversation, error)
	// FindActiveByAgent 查找营养师负责的进行中会话
	FindActiveByAgent(agentId string) ([]model.Conversation, error)
	// FindCheckers 批量查询会话的查看者
	FindCheckers(uuids []string) (map[string][]string, error)

	// MarkChecked 未接单会话置为 checked
	MarkChecked(uuid string) (bool, error)
	// AddCheck 记录营养师查看（幂等）
	AddCheck(uuid, agentId string) error
	// CompareAndAssign 未接单时写入负责人
	CompareAndAssign(uuid, agentId string, at time.Time) (bool, error)
	// CompareAndClose 结束会话
	CompareAndClose(uuid string, at time.Time) (bool, error)
	// TouchLastMessage 更新最后一条消息摘要
	TouchLastMessage(uuid, summary string, at time.Time) (bool, error)
}

// MessageRepository 消息数据访问接口
// 管理聊天消息的存取
type MessageRepository interface {
	// Create 追加消息
	Create(message *model.Message) error
	// FindByConversation 按存储顺序查询会话消息，afterId 为游标
	FindByConversation(conversationUuid string, afterId uint, limit int) ([]model.Message, error)
}
