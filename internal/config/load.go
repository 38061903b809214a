package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"llmwatch/internal/trigger"
	"llmwatch/internal/watch"
)

// EnvPrefix 为环境变量覆盖的统一前缀。
const EnvPrefix = "LLMWATCH_"

// Defaults 返回带有安全默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		File:       "mytextfile.txt",
		Interval:   watch.DefaultInterval.String(),
		Trigger:    trigger.DefaultMarker,
		StopMarker: trigger.DefaultStopMarker,
		Banner:     watch.DefaultBanner,
		Echo:       boolPtr(true),
		Notify:     boolPtr(false),
		Logging:    Logging{Level: "info"},
		Components: Components{
			Reader:        "fs",
			Writer:        "fs",
			PromptBuilder: "chat",
		},
		LLM: "openai",
		Provider: map[string]Provider{
			"openai": {Client: "openai"},
			"gemini": {Client: "gemini"},
			"mock":   {Client: "mock"},
		},
	}
}

// Load 按扩展名解析配置文件：.yaml/.yml 走 YAML，其余按 JSON。
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return LoadYAML(b)
	default:
		return LoadJSON(path, nil)
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config decode: %w", err)
	}
	return cfg, nil
}

// LoadYAML 将 YAML 文档转为 JSON 后按 LoadJSON 的严格规则解析，
// 使 provider/options 子树仍以原样 JSON 交给工厂。
func LoadYAML(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	if doc == nil {
		return Config{}, errors.New("config yaml: empty document")
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("config yaml: %w", err)
	}
	return LoadJSON("", b)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.File); s != "" {
		out.File = s
	}
	if s := strings.TrimSpace(over.Interval); s != "" {
		out.Interval = s
	}
	if over.Trigger != "" {
		out.Trigger = over.Trigger
	}
	if over.StopMarker != "" {
		out.StopMarker = over.StopMarker
	}
	if over.Banner != "" {
		out.Banner = over.Banner
	}
	if over.MaxRequestTokens != 0 {
		out.MaxRequestTokens = over.MaxRequestTokens
	}
	if over.BytesPerToken != 0 {
		out.BytesPerToken = over.BytesPerToken
	}
	if over.Notify != nil {
		out.Notify = boolPtr(*over.Notify)
	}
	if over.Echo != nil {
		out.Echo = boolPtr(*over.Echo)
	}
	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}

	// 组件名（空不覆盖）
	if over.Components.Reader != "" {
		out.Components.Reader = over.Components.Reader
	}
	if over.Components.Writer != "" {
		out.Components.Writer = over.Components.Writer
	}
	if over.Components.PromptBuilder != "" {
		out.Components.PromptBuilder = over.Components.PromptBuilder
	}

	// Provider（完整替换对应键）
	if len(over.Provider) > 0 {
		merged := make(map[string]Provider, len(out.Provider)+len(over.Provider))
		for k, v := range out.Provider {
			merged[k] = v
		}
		for k, v := range over.Provider {
			prev := merged[k]
			if v.Client == "" {
				v.Client = prev.Client
			}
			if len(v.Options) == 0 {
				v.Options = prev.Options
			}
			merged[k] = v
		}
		out.Provider = merged
	}

	// Options（完整替换对应键）
	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	if len(over.Options.PromptBuilder) > 0 {
		out.Options.PromptBuilder = cloneRaw(over.Options.PromptBuilder)
	}

	if s := strings.TrimSpace(over.LLM); s != "" {
		out.LLM = s
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 LLMWATCH_；集合之外的键忽略。
// 支持：FILE, INTERVAL, TRIGGER, STOP_MARKER, LLM, LOG_LEVEL, LOG_DIR, NOTIFY, ECHO, MAX_REQUEST_TOKENS
// 以及 PROVIDER__<name>__CLIENT / PROVIDER__<name>__OPTIONS_JSON
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	prov := map[string]Provider{}
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := kv[eq+1:]
		switch key {
		case "FILE":
			over.File = strings.TrimSpace(val)
		case "INTERVAL":
			over.Interval = strings.TrimSpace(val)
		case "TRIGGER":
			over.Trigger = val
		case "STOP_MARKER":
			over.StopMarker = val
		case "LLM":
			over.LLM = strings.TrimSpace(val)
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOG_DIR":
			over.Logging.Dir = strings.TrimSpace(val)
		case "NOTIFY", "ECHO":
			if strings.TrimSpace(val) == "" {
				continue
			}
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return over, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
			}
			if key == "NOTIFY" {
				over.Notify = boolPtr(b)
			} else {
				over.Echo = boolPtr(b)
			}
		case "MAX_REQUEST_TOKENS":
			if strings.TrimSpace(val) == "" {
				continue
			}
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return over, fmt.Errorf("env %sMAX_REQUEST_TOKENS: %w", EnvPrefix, err)
			}
			over.MaxRequestTokens = n
		default:
			// provider.* 路径：PROVIDER__name__FOO
			if !strings.HasPrefix(key, "PROVIDER__") {
				continue
			}
			parts := strings.Split(key, "__")
			if len(parts) < 3 {
				continue
			}
			name := strings.TrimSpace(parts[1])
			field := strings.Join(parts[2:], "__")
			p := prov[name]
			changed := false
			switch field {
			case "CLIENT":
				if tv := strings.TrimSpace(val); tv != "" {
					p.Client = tv
					changed = true
				}
			case "OPTIONS_JSON":
				// 原样 JSON；空值视为未设置，避免清空现有配置
				if strings.TrimSpace(val) != "" {
					if !json.Valid([]byte(val)) {
						return over, fmt.Errorf("env %s%s: invalid JSON", EnvPrefix, key)
					}
					p.Options = json.RawMessage(val)
					changed = true
				}
			}
			if changed {
				prov[name] = p
			}
		}
	}
	if len(prov) > 0 {
		over.Provider = prov
	}
	return over, nil
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
