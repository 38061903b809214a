package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"llmwatch/pkg/contract"
)

// Options: Gemini（Google GenAI SDK）最小必需。
type Options struct {
	BaseURL   string `json:"base_url"`    // 为空使用 SDK 默认端点
	Model     string `json:"model"`       // 默认 gemini-2.5-flash
	APIKeyEnv string `json:"api_key_env"` // 默认 GOOGLE_API_KEY
	APIKey    string `json:"api_key"`
	// 客户端超时（秒）。未设置或 <=0 时采用默认 60 秒。
	TimeoutSeconds int               `json:"timeout_seconds,omitempty"`
	Temperature    *float32          `json:"temperature,omitempty"`
	ExtraHeaders   map[string]string `json:"extra_headers"`
}

func (o *Options) defaults() {
	if o.Model == "" {
		o.Model = "gemini-2.5-flash"
	}
	if o.APIKeyEnv == "" {
		o.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 60
	}
}

type Client struct {
	models *genai.Models
	model  string
	temp   *float32
}

// New 从原样 JSON 选项构造客户端；缺少 API Key 时失败。
func New(raw json.RawMessage) (contract.LLMClient, error) {
	var opts Options
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("gemini options: %w", err)
		}
	}
	opts.defaults()
	key := opts.APIKey
	if key == "" && opts.APIKeyEnv != "" {
		key = os.Getenv(opts.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("gemini: %w: missing api key (set %s)", contract.ErrInvalidInput, opts.APIKeyEnv)
	}
	hopts := genai.HTTPOptions{BaseURL: opts.BaseURL}
	if len(opts.ExtraHeaders) > 0 {
		hopts.Headers = http.Header{}
		for k, v := range opts.ExtraHeaders {
			if k != "" {
				hopts.Headers.Set(k, v)
			}
		}
	}
	// 构造期不发起网络请求
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: time.Duration(opts.TimeoutSeconds) * time.Second},
		HTTPOptions: hopts,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{models: client.Models, model: opts.Model, temp: opts.Temperature}, nil
}

// Complete: system 消息进入 SystemInstruction，其余按 user/model 角色映射。
func (c *Client) Complete(ctx context.Context, p contract.Prompt) (contract.Raw, error) {
	var system string
	var msgs []contract.Message
	switch v := p.(type) {
	case contract.TextPrompt:
		msgs = []contract.Message{{Role: contract.RoleUser, Content: string(v)}}
	case contract.ChatPrompt:
		system, msgs = v.Split()
	default:
		return contract.Raw{}, contract.ErrInvalidInput
	}
	if len(msgs) == 0 {
		return contract.Raw{}, contract.ErrInvalidInput
	}

	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.Role(genai.RoleUser)
		if strings.EqualFold(m.Role, "assistant") || strings.EqualFold(m.Role, string(genai.RoleModel)) {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	cfg := &genai.GenerateContentConfig{Temperature: c.temp}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return contract.Raw{}, ctx.Err()
		}
		return contract.Raw{}, classify(err)
	}
	text := resp.Text()
	if text == "" {
		return contract.Raw{}, contract.ErrResponseInvalid
	}
	return contract.Raw{Text: text}, nil
}

// upstreamError 实现 net.Error，用于将上游 5xx/408 映射为网络类错误。
type upstreamError struct {
	status int
	msg    string
}

func (e upstreamError) Error() string           { return fmt.Sprintf("gemini upstream %d: %s", e.status, e.msg) }
func (e upstreamError) Timeout() bool           { return e.status == http.StatusRequestTimeout }
func (e upstreamError) Temporary() bool         { return e.status/100 == 5 }
func (e upstreamError) UpstreamStatus() int     { return e.status }
func (e upstreamError) UpstreamMessage() string { return e.msg }

// classify 将 SDK 的 APIError 映射为 contract 哨兵错误。
func classify(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return contract.ErrRateLimited
	case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
		return fmt.Errorf("gemini upstream %d: %w", apiErr.Code, contract.ErrUnauthorized)
	case apiErr.Code == http.StatusRequestTimeout || apiErr.Code/100 == 5:
		return upstreamError{status: apiErr.Code, msg: apiErr.Message}
	default:
		return fmt.Errorf("gemini upstream %d: %w", apiErr.Code, contract.ErrInvalidInput)
	}
}

var _ contract.LLMClient = (*Client)(nil)
