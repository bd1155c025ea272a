package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WsGateway WebSocket 网关，由 websocket.Manager 实现
type WsGateway interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userId, role string) error
	ConnectionCount() int
}

// WsHandler WebSocket 连接入口
type WsHandler struct {
	gateway WsGateway
}

// NewWsHandler 创建 WebSocket 处理器
func NewWsHandler(gateway WsGateway) *WsHandler {
	return &WsHandler{gateway: gateway}
}

// Connect 升级为 WebSocket 长连接
// GET /wss?token=
// 身份来自 JWTAuth，连接建立后客户端通过 join / join_room 指令订阅会话
func (h *WsHandler) Connect(c *gin.Context) {
	op := operator(c)
	if err := h.gateway.ServeWS(c.Writer, c.Request, op.UserId, op.Role); err != nil {
		// 升级失败时 upgrader 已经写回了 HTTP 错误
		zap.L().Warn("websocket upgrade failed", zap.String("user_id", op.UserId), zap.Error(err))
	}
}
