// Package conversation 提供咨询会话相关数据访问层的具体实现
// 状态流转全部使用带条件的 UPDATE，以受影响行数判断是否抢占成功
package conversation

import (
	"time"

	"nutri_chat_server/internal/dao/mysql/internal"
	"nutri_chat_server/internal/model"
	"nutri_chat_server/pkg/enum/conversation/conversation_state_enum"
	"nutri_chat_server/pkg/errorx"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// conversationRepository ConversationRepository 接口的实现
type conversationRepository struct {
	db *gorm.DB // GORM 数据库实例
}

// NewConversationRepository 创建 ConversationRepository 实例
func NewConversationRepository(db *gorm.DB) *conversationRepository {
	return &conversationRepository{db: db}
}

// Create 创建会话
// 同一用户同一主题已有未结束会话时返回 CodeDuplicateTopic
func (r *conversationRepository) Create(conversation *model.Conversation) error {
	if err := r.db.Create(conversation).Error; err != nil {
		if internal.IsDuplicateKey(err) {
			return errorx.Wrapf(err, errorx.CodeDuplicateTopic, "主题 %s 已有未结束的会话", conversation.Topic)
		}
		return internal.WrapDBError(err, "创建会话")
	}
	return nil
}

// FindByUuid 根据 UUID 查找会话
func (r *conversationRepository) FindByUuid(uuid string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.Where("uuid = ?", uuid).First(&conversation).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询会话 uuid=%s", uuid)
	}
	return &conversation, nil
}

// FindOpenBySubjectAndTopic 查找用户在该主题下未结束的会话
func (r *conversationRepository) FindOpenBySubjectAndTopic(subjectUserId, topic string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.Where("subject_user_id = ? AND open_topic = ?", subjectUserId, topic).
		First(&conversation).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询未结束会话 subject=%s", subjectUserId)
	}
	return &conversation, nil
}

// FindBySubject 查找用户发起的所有会话，最新的在前
func (r *conversationRepository) FindBySubject(subjectUserId string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.Where("subject_user_id = ?", subjectUserId).
		Order("id DESC").Find(&conversations).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询用户会话 subject=%s", subjectUserId)
	}
	return conversations, nil
}

// FindByState 按状态查找会话，先创建的在前
func (r *conversationRepository) FindByState(state int8) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.Where("state = ?", state).Order("id ASC").Find(&conversations).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询会话 state=%d", state)
	}
	return conversations, nil
}

// FindCheckedByAgent 查找营养师查看过且仍处于 checked 状态的会话
func (r *conversationRepository) FindCheckedByAgent(agentId string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	checked := r.db.Model(&model.ConversationCheck{}).Select("conversation_uuid").Where("agent_id = ?", agentId)
	if err := r.db.Where("uuid IN (?) AND state = ?", checked, conversation_state_enum.Checked).
		Order("id ASC").
		Find(&conversations).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询已查看会话 agent=%s", agentId)
	}
	return conversations, nil
}

// FindActiveByAgent 查找营养师负责的进行中会话，最近有变动的在前
func (r *conversationRepository) FindActiveByAgent(agentId string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	if err := r.db.Where("assigned_agent_id = ? AND state = ?", agentId, conversation_state_enum.Active).
		Order("updated_at DESC").Order("id DESC").
		Find(&conversations).Error; err != nil {
		return nil, internal.WrapDBErrorf(err, "查询进行中会话 agent=%s", agentId)
	}
	return conversations, nil
}

// MarkChecked 未接单且未结束的会话置为 checked
// 返回 false 表示条件不满足（已被接单、已结束或不存在）
func (r *conversationRepository) MarkChecked(uuid string) (bool, error) {
	res := r.db.Model(&model.Conversation{}).
		Where("uuid = ? AND assigned_agent_id IS NULL AND state IN ?", uuid,
			[]int8{conversation_state_enum.Pending, conversation_state_enum.Checked}).
		Update("state", conversation_state_enum.Checked)
	if res.Error != nil {
		return false, internal.WrapDBErrorf(res.Error, "标记会话已查看 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}

// AddCheck 记录营养师查看，重复记录忽略
func (r *conversationRepository) AddCheck(uuid, agentId string) error {
	check := model.ConversationCheck{ConversationUuid: uuid, AgentId: agentId}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&check).Error; err != nil {
		return internal.WrapDBErrorf(err, "记录会话查看 uuid=%s agent=%s", uuid, agentId)
	}
	return nil
}

// FindCheckers 批量查询会话的查看者，按查看先后排序
func (r *conversationRepository) FindCheckers(uuids []string) (map[string][]string, error) {
	result := make(map[string][]string, len(uuids))
	if len(uuids) == 0 {
		return result, nil
	}
	var checks []model.ConversationCheck
	if err := r.db.Where("conversation_uuid IN ?", uuids).Order("id ASC").Find(&checks).Error; err != nil {
		return nil, internal.WrapDBError(err, "查询会话查看记录")
	}
	for _, c := range checks {
		result[c.ConversationUuid] = append(result[c.ConversationUuid], c.AgentId)
	}
	return result, nil
}

// CompareAndAssign 仅当会话未被接单且未结束时写入负责人
// 多个营养师并发调用时只有一个返回 true
func (r *conversationRepository) CompareAndAssign(uuid, agentId string, at time.Time) (bool, error) {
	res := r.db.Model(&model.Conversation{}).
		Where("uuid = ? AND assigned_agent_id IS NULL AND state <> ?", uuid, conversation_state_enum.Closed).
		Updates(map[string]interface{}{
			"assigned_agent_id": agentId,
			"state":             conversation_state_enum.Active,
			"assigned_at":       at,
		})
	if res.Error != nil {
		return false, internal.WrapDBErrorf(res.Error, "接单 uuid=%s agent=%s", uuid, agentId)
	}
	return res.RowsAffected > 0, nil
}

// CompareAndClose 结束未结束的会话，并释放主题占用
func (r *conversationRepository) CompareAndClose(uuid string, at time.Time) (bool, error) {
	res := r.db.Model(&model.Conversation{}).
		Where("uuid = ? AND state <> ?", uuid, conversation_state_enum.Closed).
		Updates(map[string]interface{}{
			"state":      conversation_state_enum.Closed,
			"open_topic": nil,
			"closed_at":  at,
		})
	if res.Error != nil {
		return false, internal.WrapDBErrorf(res.Error, "结束会话 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}

// TouchLastMessage 更新最后一条消息摘要，已结束的会话不更新并返回 false
func (r *conversationRepository) TouchLastMessage(uuid, summary string, at time.Time) (bool, error) {
	res := r.db.Model(&model.Conversation{}).
		Where("uuid = ? AND state <> ?", uuid, conversation_state_enum.Closed).
		Updates(map[string]interface{}{
			"last_message_summary": summary,
			"last_message_at":      at,
		})
	if res.Error != nil {
		return false, internal.WrapDBErrorf(res.Error, "更新会话最新消息 uuid=%s", uuid)
	}
	return res.RowsAffected > 0, nil
}
