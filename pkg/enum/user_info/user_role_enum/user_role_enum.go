package user_role_enum

// 身份角色，由认证层写入 Token
const (
	Subject = "user"   // 咨询用户
	Agent   = "agent"  // 营养师
	System  = "system" // 内部服务
)

// Valid 判断角色是否合法
func Valid(role string) bool {
	return role == Subject || role == Agent || role == System
}
