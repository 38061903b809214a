package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"llmwatch/internal/watch"
	"llmwatch/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.File) == "" {
		return errors.New("config: file not set")
	}
	if _, err := ParseInterval(cfg.Interval); err != nil {
		return err
	}
	if cfg.Trigger == "" {
		return errors.New("config: trigger marker empty")
	}
	if cfg.StopMarker != "" && strings.Contains(cfg.Trigger, cfg.StopMarker) {
		return errors.New("config: trigger marker must not contain stop marker")
	}
	if cfg.MaxRequestTokens < 0 {
		return errors.New("config: max_request_tokens must be >= 0")
	}
	if cfg.BytesPerToken < 0 {
		return errors.New("config: bytes_per_token must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", cfg.Logging.Level)
	}
	if cfg.LLM == "" {
		return errors.New("config: llm not set")
	}
	prov, ok := cfg.Provider[cfg.LLM]
	if !ok {
		return fmt.Errorf("config: provider %q not found", cfg.LLM)
	}
	if prov.Client == "" {
		return fmt.Errorf("config: provider %q missing client", cfg.LLM)
	}
	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	if name := effName(cfg.Components.PromptBuilder, d.Components.PromptBuilder); registry.PromptBuilder[name] == nil {
		return fmt.Errorf("config: prompt_builder %q not registered", name)
	}
	if registry.LLMClient[prov.Client] == nil {
		return fmt.Errorf("config: llm client %q not registered", prov.Client)
	}
	return nil
}

// ParseInterval 解析轮询间隔；必须为正。
func ParseInterval(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return watch.DefaultInterval, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("config: interval: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("config: interval must be > 0")
	}
	return d, nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (watch.Components, watch.Settings, error) {
	if err := Validate(cfg); err != nil {
		return watch.Components{}, watch.Settings{}, err
	}
	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	wn := effName(cfg.Components.Writer, d.Components.Writer)
	pn := effName(cfg.Components.PromptBuilder, d.Components.PromptBuilder)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return watch.Components{}, watch.Settings{}, fmt.Errorf("reader %q: %w", rn, err)
	}
	w, err := registry.Writer[wn](cfg.Options.Writer)
	if err != nil {
		return watch.Components{}, watch.Settings{}, fmt.Errorf("writer %q: %w", wn, err)
	}
	pb, err := registry.PromptBuilder[pn](cfg.Options.PromptBuilder)
	if err != nil {
		return watch.Components{}, watch.Settings{}, fmt.Errorf("prompt_builder %q: %w", pn, err)
	}
	prov := cfg.Provider[cfg.LLM]
	llm, err := registry.LLMClient[prov.Client](prov.Options)
	if err != nil {
		return watch.Components{}, watch.Settings{}, fmt.Errorf("llm %q: %w", cfg.LLM, err)
	}

	interval, _ := ParseInterval(cfg.Interval)
	comp := watch.Components{Reader: r, Writer: w, LLM: llm, Prompt: pb}
	set := watch.Settings{
		Path:             cfg.File,
		Interval:         interval,
		Trigger:          cfg.Trigger,
		StopMarker:       cfg.StopMarker,
		Banner:           cfg.Banner,
		MaxRequestTokens: cfg.MaxRequestTokens,
		BytesPerToken:    cfg.BytesPerToken,
		Notify:           cfg.NotifyEnabled(),
		LLMName:          cfg.LLM,
	}
	return comp, set, nil
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
