package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck 一个依赖项的存活检查
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	checks  []HealthCheck
	gateway WsGateway
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(gateway WsGateway, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, gateway: gateway}
}

// Health 检查各依赖项
// GET /health
// 任一依赖不可用时返回 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			deps[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "ok"
	}

	body := gin.H{"status": "ok", "dependencies": deps}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.gateway != nil {
		body["connections"] = h.gateway.ConnectionCount()
	}
	c.JSON(status, body)
}
