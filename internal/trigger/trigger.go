// Package trigger 在文件文本中查找触发标记并截取请求。
package trigger

import "strings"

// 默认标记。
const (
	DefaultMarker     = "ABCD1234"
	DefaultStopMarker = "STOPTHISNOW"
)

// Extract 返回 marker 最后一次出现之后的文本（去除首尾空白）。
// marker 为空或不存在时 ok=false。不做转义处理。
func Extract(content, marker string) (request string, ok bool) {
	if marker == "" {
		return "", false
	}
	i := strings.LastIndex(content, marker)
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(content[i+len(marker):]), true
}

// Contains 报告 content 是否包含 marker；空 marker 永不匹配。
func Contains(content, marker string) bool {
	return marker != "" && strings.Contains(content, marker)
}
