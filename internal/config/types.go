package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// File: 被监视的文本文件路径。
	File string `json:"file"`
	// Interval: 轮询间隔，Go duration 语法（如 "5s"、"750ms"）。
	Interval string `json:"interval"`
	// Trigger / StopMarker: 触发标记与停止标记。
	Trigger    string `json:"trigger"`
	StopMarker string `json:"stop_marker"`
	// Banner: 写回时置于回复之前的横幅。
	Banner string `json:"banner"`
	// MaxRequestTokens: 请求估算 token 上限；0 表示不限制。
	MaxRequestTokens int `json:"max_request_tokens"`
	BytesPerToken    int `json:"bytes_per_token"`
	// Notify / Echo: 指针以区分“未设置”与显式 false。
	Notify  *bool   `json:"notify,omitempty"`
	Echo    *bool   `json:"echo,omitempty"`
	Logging Logging `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// LLM Provider 选择与定义。
	LLM      string              `json:"llm"`
	Provider map[string]Provider `json:"provider"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与可选的文件目录（为空则仅输出到 stderr）。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader        string `json:"reader"`
	Writer        string `json:"writer"`
	PromptBuilder string `json:"prompt_builder"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader        json.RawMessage `json:"reader,omitempty"`
	Writer        json.RawMessage `json:"writer,omitempty"`
	PromptBuilder json.RawMessage `json:"prompt_builder,omitempty"`
}

// Provider: 命名 provider 定义（client 实现 + options）。
type Provider struct {
	Client  string          `json:"client"`
	Options json.RawMessage `json:"options,omitempty"`
}

// NotifyEnabled 返回 notify 的生效值（默认 false）。
func (c Config) NotifyEnabled() bool { return c.Notify != nil && *c.Notify }

// EchoEnabled 返回 echo 的生效值（默认 true）。
func (c Config) EchoEnabled() bool { return c.Echo == nil || *c.Echo }

func boolPtr(b bool) *bool { return &b }
