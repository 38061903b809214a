package flaky

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"llmwatch/pkg/contract"
	"llmwatch/plugins/llmclient/mock"
)

// Options 定义可选项。
type Options struct {
	Prefix string `json:"prefix"`
	// FailFirst: 前 N 次调用失败；默认 1。
	FailFirst int `json:"fail_first"`
	// Failure: 失败形态，"rate_limited"（默认）| "unauthorized" | "invalid_response"。
	Failure string `json:"failure"`
	// LogPath: 调试用日志文件，记录每次调用结果（可选）。
	LogPath string `json:"log_path,omitempty"`
}

// Client 是带状态的 LLM 实现：前 FailFirst 次返回 Failure 对应的错误，之后回显请求。
type Client struct {
	prefix    string
	failFirst int32
	failure   error
	logPath   string
	count     atomic.Int32
}

// New 构造 Client。
func New(raw json.RawMessage) (contract.LLMClient, error) {
	var o Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, err
		}
	}
	if o.Prefix == "" {
		o.Prefix = "FLAKY"
	}
	if o.FailFirst <= 0 {
		o.FailFirst = 1
	}
	var ferr error
	switch o.Failure {
	case "", "rate_limited":
		ferr = contract.ErrRateLimited
	case "unauthorized":
		ferr = contract.ErrUnauthorized
	case "invalid_response":
		ferr = contract.ErrResponseInvalid
	default:
		return nil, fmt.Errorf("flaky: %w: unknown failure %q", contract.ErrInvalidInput, o.Failure)
	}
	return &Client{prefix: o.Prefix, failFirst: int32(o.FailFirst), failure: ferr, logPath: o.LogPath}, nil
}

func (c *Client) log(s string) {
	if c.logPath == "" {
		return
	}
	// 追加写入，忽略错误。
	_ = appendFile(c.logPath, s+"\n")
}

// appendFile 以追加方式写入。
func appendFile(path, s string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(s)
	return err
}

// Calls 返回累计调用次数。
func (c *Client) Calls() int { return int(c.count.Load()) }

// Complete 实现 contract.LLMClient。
func (c *Client) Complete(ctx context.Context, p contract.Prompt) (contract.Raw, error) {
	if n := c.count.Add(1); n <= c.failFirst {
		c.log(c.failure.Error())
		return contract.Raw{}, c.failure
	}
	q, err := mock.LastUser(p)
	if err != nil {
		return contract.Raw{}, err
	}
	c.log("ok")
	return contract.Raw{Text: c.prefix + ": " + q}, nil
}

var _ contract.LLMClient = (*Client)(nil)
