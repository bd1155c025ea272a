package handler

import (
	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 咨询会话请求处理器
// 会话生命周期：创建、查看、接单、结束，以及各角色的会话列表
type ConversationHandler struct {
	conversationSvc service.ConversationService
	assignmentSvc   service.AssignmentService
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(conversationSvc service.ConversationService, assignmentSvc service.AssignmentService) *ConversationHandler {
	return &ConversationHandler{conversationSvc: conversationSvc, assignmentSvc: assignmentSvc}
}

// Create 咨询用户发起会话
// POST /conversation/create
// 同一用户存在同主题的未结束会话时返回 CodeDuplicateTopic，data 中带已有会话 id
func (h *ConversationHandler) Create(c *gin.Context) {
	var req request.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.conversationSvc.CreateConversation(c.Request.Context(), operator(c), req)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Mine 咨询用户自己的会话
// GET /conversation/mine
func (h *ConversationHandler) Mine(c *gin.Context) {
	data, err := h.conversationSvc.ListMine(c.Request.Context(), operator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Pending 待处理会话（营养师）
// GET /conversation/pending
func (h *ConversationHandler) Pending(c *gin.Context) {
	data, err := h.conversationSvc.ListPending(c.Request.Context(), operator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Checked 当前营养师查看过、尚未被接单的会话
// GET /conversation/checked
func (h *ConversationHandler) Checked(c *gin.Context) {
	data, err := h.conversationSvc.ListChecked(c.Request.Context(), operator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Active 当前营养师负责的进行中会话
// GET /conversation/active
func (h *ConversationHandler) Active(c *gin.Context) {
	data, err := h.conversationSvc.ListActive(c.Request.Context(), operator(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Detail 会话详情
// GET /conversation/detail?conversation_id=
func (h *ConversationHandler) Detail(c *gin.Context) {
	var req request.ConversationIdRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.conversationSvc.GetConversation(c.Request.Context(), operator(c), req.ConversationId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Check 营养师查看会话
// POST /conversation/check
func (h *ConversationHandler) Check(c *gin.Context) {
	var req request.ConversationIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.assignmentSvc.Check(c.Request.Context(), operator(c), req.ConversationId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Accept 营养师接单
// POST /conversation/accept
// 多个营养师同时接单只有一个成功，其余返回 CodeAlreadyAssigned
func (h *ConversationHandler) Accept(c *gin.Context) {
	var req request.ConversationIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.assignmentSvc.Accept(c.Request.Context(), operator(c), req.ConversationId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// Close 结束会话
// POST /conversation/close
func (h *ConversationHandler) Close(c *gin.Context) {
	var req request.ConversationIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.conversationSvc.CloseConversation(c.Request.Context(), operator(c), req.ConversationId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}
