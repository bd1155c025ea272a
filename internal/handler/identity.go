package handler

import (
	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

// operator 从上下文读取 JWTAuth 写入的调用者身份
func operator(c *gin.Context) request.Operator {
	return request.Operator{
		UserId: c.GetString(middleware.ContextUserIdKey),
		Role:   c.GetString(middleware.ContextRoleKey),
	}
}
