// Package prompt 构造发往模型的单轮会话载荷，并提供近似 token 估算。
package prompt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"llmwatch/pkg/contract"
)

// DefaultSystem 为默认 system 指令。
const DefaultSystem = "You are a helpful assistant."

// Options: system 指令来源（二选一，均为空时使用 DefaultSystem）。
type Options struct {
	InlineSystem string `json:"inline_system"`
	SystemPath   string `json:"system_path"`
}

// Builder: 以请求文本构造 ChatPrompt（system+user）。
// 运行期不做 I/O；system 在构造期确定。
type Builder struct {
	system string
}

// New 创建 Builder；SystemPath 在此读取。
func New(opts *Options) (*Builder, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	sys := DefaultSystem
	if strings.TrimSpace(o.InlineSystem) != "" {
		sys = o.InlineSystem
	} else if o.SystemPath != "" {
		b, err := os.ReadFile(o.SystemPath)
		if err != nil {
			return nil, fmt.Errorf("system prompt read: %w", err)
		}
		sys = strings.TrimSpace(string(b))
	}
	return &Builder{system: sys}, nil
}

// System 返回生效的 system 指令。
func (b *Builder) System() string { return b.system }

// Build 构造 ChatPrompt；空请求视为无效输入。
func (b *Builder) Build(ctx context.Context, request string) (contract.ChatPrompt, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if strings.TrimSpace(request) == "" {
		return nil, fmt.Errorf("empty request: %w", contract.ErrInvalidInput)
	}
	return contract.ChatPrompt{
		{Role: contract.RoleSystem, Content: b.system},
		{Role: contract.RoleUser, Content: request},
	}, nil
}

// EstimateOverheadTokens 估算与请求无关的固定开销（system 指令）。
func (b *Builder) EstimateOverheadTokens(estimate contract.TokenEstimator) int {
	return estimate(b.system)
}

// MakeEstimator 返回一个近似 token 估算器：tokens ≈ ceil(len(utf8_bytes)/bytesPerToken)。
// 当 bytesPerToken<=0 时采用默认 4。
func MakeEstimator(bytesPerToken int) contract.TokenEstimator {
	bpt := bytesPerToken
	if bpt <= 0 {
		bpt = 4
	}
	return func(s string) int {
		n := len(s)
		if n == 0 {
			return 0
		}
		return (n + bpt - 1) / bpt
	}
}

// CheckBudget 在 maxTokens>0 时校验 system+request 的估算值不超过上限。
// 返回估算值；超限时错误包裹 contract.ErrBudgetExceeded。
func CheckBudget(b *Builder, request string, bytesPerToken, maxTokens int) (int, error) {
	est := MakeEstimator(bytesPerToken)
	total := b.EstimateOverheadTokens(est) + est(request)
	if maxTokens > 0 && total > maxTokens {
		return total, fmt.Errorf("request needs ~%d tokens, limit %d: %w", total, maxTokens, contract.ErrBudgetExceeded)
	}
	return total, nil
}
