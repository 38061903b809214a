package contract

import (
	"context"
	"errors"
)

// Raw: LLM 客户端返回的原始文本。
// 约束：原样返回，不做清洗/截断/归一化。
type Raw struct {
	Text string
}

// LLMClient: 以 Prompt 为单位与大模型交互。
// 单次调用、同步返回；应尊重 ctx 取消/超时并及时释放资源。
type LLMClient interface {
	Complete(ctx context.Context, p Prompt) (Raw, error)
}

// 最小错误分类（用于日志分类；watch 层一律视为“无响应”）。
var (
	ErrRateLimited     = errors.New("rate limited")
	ErrResponseInvalid = errors.New("response invalid")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
)
