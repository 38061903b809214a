package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmwatch/internal/watch"
)

func TestLoadJSON(t *testing.T) {
	cfg, err := Load("testdata/basic.json")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", cfg.File)
	assert.Equal(t, "mock", cfg.LLM)
	assert.Equal(t, 4000, cfg.MaxRequestTokens)
	assert.True(t, cfg.NotifyEnabled())
	assert.True(t, cfg.EchoEnabled())
	assert.JSONEq(t, `{"atomic": true}`, string(cfg.Options.Writer))
	require.NoError(t, Validate(Merge(Defaults(), cfg)))
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load("testdata/basic.yaml")
	require.NoError(t, err)
	assert.Equal(t, "750ms", cfg.Interval)
	assert.False(t, cfg.EchoEnabled())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "logs", cfg.Logging.Dir)
	require.Contains(t, cfg.Provider, "offline")
	assert.Equal(t, "mock", cfg.Provider["offline"].Client)
	assert.JSONEq(t, `{"response_mode":"echo","prefix":"ECHO"}`, string(cfg.Provider["offline"].Options))

	merged := Merge(Defaults(), cfg)
	require.NoError(t, Validate(merged))
	comp, set, err := Assemble(merged)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, set.Interval)
	assert.Equal(t, "You answer tersely.", comp.Prompt.System())
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := LoadJSON("", []byte(`{"unknown":1}`))
	assert.Error(t, err)
	_, err = LoadYAML([]byte("file: a\nbogus: true\n"))
	assert.Error(t, err)
	_, err = LoadYAML([]byte(""))
	assert.Error(t, err)
	_, err = LoadJSON("", nil)
	assert.Error(t, err)
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"LLMWATCH_FILE=watched.txt",
		"LLMWATCH_INTERVAL=1s",
		"LLMWATCH_LLM=mock",
		"LLMWATCH_NOTIFY=true",
		"LLMWATCH_ECHO=false",
		"LLMWATCH_MAX_REQUEST_TOKENS=99",
		"LLMWATCH_LOG_LEVEL=debug",
		"LLMWATCH_PROVIDER__mock__OPTIONS_JSON={\"response_mode\":\"fixed\",\"reply\":\"r\"}",
		"LLMWATCH_PROVIDER__alt__CLIENT=flaky",
		"LLMWATCH_PROVIDER__empty__CLIENT=",
		"OTHER_VAR=ignored",
	}
	over, err := EnvOverlay(env)
	require.NoError(t, err)
	assert.Equal(t, "watched.txt", over.File)
	assert.Equal(t, "1s", over.Interval)
	assert.Equal(t, "mock", over.LLM)
	assert.True(t, over.NotifyEnabled())
	assert.False(t, over.EchoEnabled())
	assert.Equal(t, 99, over.MaxRequestTokens)
	assert.Equal(t, "debug", over.Logging.Level)
	assert.Len(t, over.Provider, 2)
	assert.Equal(t, "flaky", over.Provider["alt"].Client)

	merged := Merge(Defaults(), over)
	assert.Equal(t, "mock", merged.Provider["mock"].Client, "client kept when only options overridden")
	require.NoError(t, Validate(merged))
}

func TestEnvOverlayInvalid(t *testing.T) {
	_, err := EnvOverlay([]string{"LLMWATCH_NOTIFY=maybe"})
	assert.Error(t, err)
	_, err = EnvOverlay([]string{"LLMWATCH_MAX_REQUEST_TOKENS=lots"})
	assert.Error(t, err)
	_, err = EnvOverlay([]string{"LLMWATCH_PROVIDER__x__OPTIONS_JSON={"})
	assert.Error(t, err)
}

func TestMergePrecedence(t *testing.T) {
	file := Config{File: "from-file.txt", Interval: "10s", Echo: boolPtr(false)}
	env := Config{Interval: "3s"}
	cli := Config{Echo: boolPtr(true)}
	cfg := Merge(Merge(Merge(Defaults(), file), env), cli)
	assert.Equal(t, "from-file.txt", cfg.File)
	assert.Equal(t, "3s", cfg.Interval)
	assert.True(t, cfg.EchoEnabled())
	assert.Equal(t, "ABCD1234", cfg.Trigger)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"no file", func(c *Config) { c.File = " " }},
		{"bad interval", func(c *Config) { c.Interval = "soon" }},
		{"zero interval", func(c *Config) { c.Interval = "0s" }},
		{"no trigger", func(c *Config) { c.Trigger = "" }},
		{"trigger contains stop", func(c *Config) { c.Trigger = "XSTOPTHISNOWX" }},
		{"negative budget", func(c *Config) { c.MaxRequestTokens = -1 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"no llm", func(c *Config) { c.LLM = "" }},
		{"unknown provider", func(c *Config) { c.LLM = "nope" }},
		{"unknown client", func(c *Config) { c.Provider = map[string]Provider{"openai": {Client: "nope"}} }},
		{"unknown reader", func(c *Config) { c.Components.Reader = "s3" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mut(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
	assert.NoError(t, Validate(Defaults()))
}

func TestAssembleDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.LLM = "mock"
	comp, set, err := Assemble(cfg)
	require.NoError(t, err)
	assert.NotNil(t, comp.Reader)
	assert.NotNil(t, comp.Writer)
	assert.NotNil(t, comp.LLM)
	assert.Equal(t, "mytextfile.txt", set.Path)
	assert.Equal(t, watch.DefaultInterval, set.Interval)
	assert.Equal(t, watch.DefaultBanner, set.Banner)
	assert.Equal(t, "STOPTHISNOW", set.StopMarker)
	assert.False(t, set.Notify)
}

func TestAssembleMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, _, err := Assemble(Defaults())
	assert.Error(t, err)
}

func TestAssembleBadOptions(t *testing.T) {
	cfg := Defaults()
	cfg.LLM = "mock"
	cfg.Options.Writer = json.RawMessage(`{"atomic": true, "output_dir": "x"}`)
	_, _, err := Assemble(cfg)
	assert.Error(t, err)
}

func TestDefaultTemplateConfig(t *testing.T) {
	cfg := DefaultTemplateConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	back, err := Load(path)
	require.NoError(t, err)
	back.LLM = "mock"
	_, _, err = Assemble(back)
	require.NoError(t, err)
}
