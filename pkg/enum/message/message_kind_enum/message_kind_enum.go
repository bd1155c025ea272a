package message_kind_enum

const (
	Text  = iota // 文本
	Image        // 图片
	Video        // 视频
)

// Valid 判断消息类型是否受支持
func Valid(kind int8) bool {
	return kind == Text || kind == Image || kind == Video
}
