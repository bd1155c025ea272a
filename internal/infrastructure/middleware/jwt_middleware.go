// Package middleware 提供 gin 中间件：认证、角色校验、指标与 TLS 重定向
package middleware

import (
	"net/http"
	"strings"

	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/errorx"
	"nutri_chat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
)

// 上下文中的身份字段
const (
	ContextUserIdKey = "user_id"
	ContextRoleKey   = "role"
)

// JWTAuth JWT 认证中间件
// 验证 Access Token 并将用户 id 与角色存入上下文
// 浏览器的 WebSocket 无法设置请求头，因此也接受查询参数 token
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 取 Token：优先 Authorization 头，其次 ?token=
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请先登录",
			})
			return
		}

		// 2. 验证 Token
		claims, err := jwt.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "Token 已过期或无效，请重新登录",
			})
			return
		}

		// 3. 验证是否为 Access Token 且身份完整
		if claims.Subject != "access_token" || claims.UserID == "" || !user_role_enum.Valid(claims.Role) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": errorx.CodeUnauthorized,
				"msg":  "请使用有效的 Access Token 访问此接口",
			})
			return
		}

		// 4. 将身份存入上下文，供后续 Handler 使用
		c.Set(ContextUserIdKey, claims.UserID)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// RequireRole 限制可访问的角色，须在 JWTAuth 之后使用
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[c.GetString(ContextRoleKey)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code": errorx.CodeForbidden,
				"msg":  "当前身份无权访问此接口",
			})
			return
		}
		c.Next()
	}
}
