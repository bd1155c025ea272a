// Package common 提供各业务 Service 共用的会话加载、响应组装与事件通知
package common

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nutri_chat_server/internal/dao/mysql"
	myredis "nutri_chat_server/internal/dao/redis"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/model"
	"nutri_chat_server/pkg/errorx"
)

// LoadConversation 加载会话，不存在时返回 ErrConversationAbsent
func LoadConversation(repo mysql.ConversationRepository, conversationId string) (*model.Conversation, error) {
	conv, err := repo.FindByUuid(conversationId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.ErrConversationAbsent
		}
		zap.L().Error("查询会话失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return conv, nil
}

// ToRespond 组装单个会话响应，附带查看者列表
func ToRespond(repo mysql.ConversationRepository, conv *model.Conversation) respond.ConversationRespond {
	checkers, err := repo.FindCheckers([]string{conv.Uuid})
	if err != nil {
		// 查看者只用于展示，查询失败不影响主流程
		zap.L().Warn("查询会话查看者失败", zap.String("conversation_id", conv.Uuid), zap.Error(err))
	}
	return respond.NewConversationRespond(conv, checkers[conv.Uuid])
}

// ToRespondList 批量组装会话响应，空结果返回空数组
func ToRespondList(repo mysql.ConversationRepository, convs []model.Conversation) ([]respond.ConversationRespond, error) {
	rsp := make([]respond.ConversationRespond, 0, len(convs))
	if len(convs) == 0 {
		return rsp, nil
	}
	uuids := make([]string, 0, len(convs))
	for _, c := range convs {
		uuids = append(uuids, c.Uuid)
	}
	checkers, err := repo.FindCheckers(uuids)
	if err != nil {
		zap.L().Error("批量查询会话查看者失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	for i := range convs {
		rsp = append(rsp, respond.NewConversationRespond(&convs[i], checkers[convs[i].Uuid]))
	}
	return rsp, nil
}

// PendingSnapshot 待处理列表缓存内容
type PendingSnapshot struct {
	Version string                        `json:"version"`
	List    []respond.ConversationRespond `json:"list"`
}

// PendingVersion 读取待处理列表当前版本，不存在时写入新版本
// 回填必须使用查询数据库之前读到的版本
func PendingVersion(ctx context.Context, cache myredis.CacheService) (string, error) {
	version, err := cache.Get(ctx, myredis.PendingVersionKey)
	if err != nil || version != "" {
		return version, err
	}
	version = uuid.NewString()
	if err := cache.Set(ctx, myredis.PendingVersionKey, version, 0); err != nil {
		return "", err
	}
	return version, nil
}

// InvalidatePending 使待处理列表缓存失效，cache 为 nil 时跳过
// 先换版本再删列表：失效之前排队、之后才执行的回填带着旧版本，读取时会被丢弃
func InvalidatePending(ctx context.Context, cache myredis.CacheService) {
	if cache == nil {
		return
	}
	if err := cache.Set(ctx, myredis.PendingVersionKey, uuid.NewString(), 0); err != nil {
		zap.L().Warn("更新待处理会话缓存版本失败", zap.Error(err))
	}
	if err := cache.Delete(ctx, myredis.PendingListKey); err != nil {
		zap.L().Warn("删除待处理会话缓存失败", zap.Error(err))
	}
}
