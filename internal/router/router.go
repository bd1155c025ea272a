// Package router 提供 HTTP 路由注册
// 本文件是路由注册的入口，聚合所有子模块的路由
package router

import (
	"nutri_chat_server/internal/handler"
	"nutri_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 路由管理器，持有 Handler 聚合
type Router struct {
	handlers *handler.Handlers
}

// NewRouter 创建路由管理器
func NewRouter(handlers *handler.Handlers) *Router {
	return &Router{handlers: handlers}
}

// RegisterRoutes 注册所有路由
// 在 https_server.Init() 中调用
// /health 与 /metrics 无需认证，其余路由都经过 JWTAuth
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", rt.handlers.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("", middleware.JWTAuth())
	rt.RegisterConversationRoutes(authed) // 会话路由
	rt.RegisterMessageRoutes(authed)      // 消息路由
	rt.RegisterReminderRoutes(authed)     // 提醒路由
	rt.RegisterWebSocketRoutes(authed)    // WebSocket 路由
}
