// Package router 提供 HTTP 路由注册
// 本文件定义提醒推送相关的路由
package router

import (
	"nutri_chat_server/internal/infrastructure/middleware"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"

	"github.com/gin-gonic/gin"
)

// RegisterReminderRoutes 注册提醒路由，仅营养师与系统账号可调用
func (rt *Router) RegisterReminderRoutes(rg *gin.RouterGroup) {
	reminderGroup := rg.Group("/reminder", middleware.RequireRole(user_role_enum.Agent, user_role_enum.System))
	{
		reminderGroup.POST("/emit", rt.handlers.Reminder.Emit) // 推送提醒
	}
}
