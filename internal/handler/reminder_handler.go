package handler

import (
	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ReminderHandler 提醒推送请求处理器，仅营养师与系统账号可调用
type ReminderHandler struct {
	reminderSvc service.ReminderService
}

// NewReminderHandler 创建提醒处理器
func NewReminderHandler(reminderSvc service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderSvc: reminderSvc}
}

// Emit 向目标用户的所有在线连接推送提醒
// POST /reminder/emit
func (h *ReminderHandler) Emit(c *gin.Context) {
	var req request.EmitReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.reminderSvc.Emit(c.Request.Context(), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
