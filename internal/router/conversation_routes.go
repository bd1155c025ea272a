// Package router 提供 HTTP 路由注册
// 本文件定义咨询会话相关的路由
package router

import (
	"nutri_chat_server/internal/infrastructure/middleware"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"

	"github.com/gin-gonic/gin"
)

// RegisterConversationRoutes 注册会话相关路由（需要认证）
// 查看、接单与营养师工作台列表只对营养师开放
func (rt *Router) RegisterConversationRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Conversation
	conversationGroup := rg.Group("/conversation")
	{
		conversationGroup.POST("/create", h.Create) // 咨询用户发起会话
		conversationGroup.POST("/close", h.Close)   // 结束会话
		conversationGroup.GET("/mine", h.Mine)      // 咨询用户的会话列表
		conversationGroup.GET("/detail", h.Detail)  // 会话详情
	}

	agentGroup := conversationGroup.Group("", middleware.RequireRole(user_role_enum.Agent))
	{
		agentGroup.GET("/pending", h.Pending) // 待处理会话
		agentGroup.GET("/checked", h.Checked) // 查看过的会话
		agentGroup.GET("/active", h.Active)   // 负责中的会话
		agentGroup.POST("/check", h.Check)    // 查看
		agentGroup.POST("/accept", h.Accept)  // 接单
	}
}
