package config

import "encoding/json"

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// - 使用 openai provider，密钥取自 OPENAI_API_KEY；
// - 同时列出 gemini/mock/flaky 的全部选项键，切换 llm 即可使用；
// - 选项给出安全中性默认值。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Logging = Logging{Level: "info", Dir: "logs"}
	cfg.Provider = map[string]Provider{
		"openai": {
			Client: "openai",
			Options: json.RawMessage(`{
  "base_url": "",
  "model": "gpt-4-1106-preview",
  "api_key_env": "OPENAI_API_KEY",
  "api_key": "",
  "timeout_seconds": 60,
  "temperature": null,
  "endpoint_path": "",
  "disable_default_auth": false,
  "extra_headers": {}
}`),
		},
		"gemini": {
			Client: "gemini",
			Options: json.RawMessage(`{
  "base_url": "",
  "model": "gemini-2.5-flash",
  "api_key_env": "GOOGLE_API_KEY",
  "api_key": "",
  "timeout_seconds": 60,
  "extra_headers": {}
}`),
		},
		"mock": {
			Client:  "mock",
			Options: json.RawMessage(`{"prefix": "MOCK", "response_mode": "echo", "reply": ""}`),
		},
		"flaky": {
			Client:  "flaky",
			Options: json.RawMessage(`{"prefix": "FLAKY", "fail_first": 1, "failure": "rate_limited"}`),
		},
	}
	cfg.Options.Reader = json.RawMessage(`{"buf_size": 65536}`)
	cfg.Options.Writer = json.RawMessage(`{
  "atomic": false,
  "perm_file": 0,
  "buf_size": 65536
}`)
	cfg.Options.PromptBuilder = json.RawMessage(`{
  "inline_system": "",
  "system_path": ""
}`)
	return cfg
}
