package conversation_state_enum

// 咨询会话状态
// Pending -> Checked -> Active -> Closed，Pending 也可直接进入 Active
const (
	Pending = iota // 等待营养师响应
	Checked        // 已有营养师查看，但尚未接单
	Active         // 已被某位营养师接单
	Closed         // 已结束
)

// Name 返回状态的可读名称，用于日志和响应
func Name(state int8) string {
	switch state {
	case Pending:
		return "pending"
	case Checked:
		return "checked"
	case Active:
		return "active"
	case Closed:
		return "closed"
	}
	return "unknown"
}
