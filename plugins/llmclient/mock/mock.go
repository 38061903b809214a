package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"llmwatch/pkg/contract"
)

// Options: 离线调试配置（可选）。
type Options struct {
	Prefix string `json:"prefix"` // echo 模式的输出前缀，默认 "MOCK"
	// ResponseMode: 响应模式（用于集成测试与无网络联调）。
	//  - "" / "echo": 回显最后一条 user 消息，形如 "<Prefix>: <text>"；
	//  - "fixed": 总是返回 Reply；
	//  - "empty": 返回空文本（用于验证“无响应”路径）。
	ResponseMode string `json:"response_mode,omitempty"`
	Reply        string `json:"reply,omitempty"`
}

type Client struct {
	prefix string
	mode   string
	reply  string
}

func New(raw json.RawMessage) (contract.LLMClient, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, fmt.Errorf("mock options: %w", err)
		}
	}
	if o.Prefix == "" {
		o.Prefix = "MOCK"
	}
	mode := strings.TrimSpace(o.ResponseMode)
	if mode == "" {
		mode = "echo"
	}
	switch mode {
	case "echo", "fixed", "empty":
	default:
		return nil, fmt.Errorf("mock: %w: unknown response_mode %q", contract.ErrInvalidInput, mode)
	}
	return &Client{prefix: o.Prefix, mode: mode, reply: o.Reply}, nil
}

func (c *Client) Complete(ctx context.Context, p contract.Prompt) (contract.Raw, error) {
	select {
	case <-ctx.Done():
		return contract.Raw{}, ctx.Err()
	default:
	}
	switch c.mode {
	case "fixed":
		return contract.Raw{Text: c.reply}, nil
	case "empty":
		return contract.Raw{}, nil
	}
	q, err := LastUser(p)
	if err != nil {
		return contract.Raw{}, err
	}
	return contract.Raw{Text: fmt.Sprintf("%s: %s", c.prefix, q)}, nil
}

// LastUser 取出 Prompt 中最后一条 user 文本。
func LastUser(p contract.Prompt) (string, error) {
	switch v := p.(type) {
	case contract.TextPrompt:
		return string(v), nil
	case contract.ChatPrompt:
		for i := len(v) - 1; i >= 0; i-- {
			if v[i].Role == contract.RoleUser {
				return v[i].Content, nil
			}
		}
	}
	return "", contract.ErrInvalidInput
}

var _ contract.LLMClient = (*Client)(nil)
