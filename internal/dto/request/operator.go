package request

// Operator 已认证的调用方身份，由 JWT 中间件写入上下文
// 使用位置:
//   - internal/service/*: 所有业务操作的权限判断
//   - internal/gateway/websocket/client.go: ws 指令
type Operator struct {
	UserId string
	Role   string
}
