package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "llmwatch/internal/config"
	"llmwatch/internal/diag"
	"llmwatch/internal/watch"
)

// 退出码：0 成功/中断/停止标记；1 运行期失败；3 配置或启动失败。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// exitError 携带退出码，供 run 映射。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// cobra 的参数/旗标错误
	return exitConfig
}

func run(args []string) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(uuid.NewString())
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	var ee *exitError
	if err != nil && !errors.As(err, &ee) {
		fprintf(os.Stderr, "参数错误: %v\n", err)
	}
	return exitCode(err)
}

// cliFlags: CLI 覆盖项（优先级最高）。
type cliFlags struct {
	config   string
	file     string
	interval string
	llm      string
	logLevel string
	notify   bool
	echo     bool
}

func newRootCmd(corrID string) *cobra.Command {
	var f cliFlags
	root := &cobra.Command{
		Use:   "llmwatch",
		Short: "监视文本文件，遇到触发标记时把其后的文本发给 LLM 并写回回复",
		Long: `llmwatch 按固定间隔读取文件新增内容；当出现触发标记（默认 ABCD1234）时，
取最后一个标记之后的文本作为请求发送给模型，并以分隔横幅加回复覆盖整个文件。
出现停止标记（默认 STOPTHISNOW）或收到中断信号时退出。`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, f, corrID, false)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.config, "config", "", "配置文件路径（JSON 或 YAML）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	pf.StringVar(&f.file, "file", "", "被监视的文件（覆盖配置）")
	pf.StringVar(&f.interval, "interval", "", "轮询间隔，如 5s（覆盖配置）")
	pf.StringVar(&f.llm, "llm", "", "provider 名称（覆盖配置）")
	pf.StringVar(&f.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	pf.BoolVar(&f.notify, "notify", false, "监听文件写事件以提前唤醒")
	pf.BoolVar(&f.echo, "echo", true, "在 stdout 回显请求与回复")

	root.AddCommand(&cobra.Command{
		Use:           "once",
		Short:         "只执行一次检查（读取、触发、写回）后退出",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, f, corrID, true)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:           "init-config [dir]",
		Short:         "在目录中生成默认 config.json 与 .env 模板（已存在则跳过，不覆盖）",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return initConfig(cmd.ErrOrStderr(), dir)
		},
	})
	return root
}

// loadConfig 依次合并 defaults < file < ENV < CLI，并做校验。
func loadConfig(cmd *cobra.Command, f cliFlags) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := f.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, cand := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(cand); err == nil {
				path = cand
				break
			}
		}
	}
	if path != "" {
		base, err := cfgpkg.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load %s: %w", path, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		base, err := cfgpkg.LoadJSON("", []byte(s))
		if err != nil {
			return cfg, fmt.Errorf("load %sCONFIG_JSON: %w", cfgpkg.EnvPrefix, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	overCLI.File = f.file
	overCLI.Interval = f.interval
	overCLI.LLM = f.llm
	overCLI.Logging.Level = f.logLevel
	if fl := cmd.Flag("notify"); fl != nil && fl.Changed {
		overCLI.Notify = &f.notify
	}
	if fl := cmd.Flag("echo"); fl != nil && fl.Changed {
		overCLI.Echo = &f.echo
	}
	cfg = cfgpkg.Merge(cfg, overCLI)

	if err := cfgpkg.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runWatch(cmd *cobra.Command, f cliFlags, corrID string, once bool) error {
	ctx := cmd.Context()
	stderr := cmd.ErrOrStderr()
	start := time.Now()
	// 先占位默认 logger，配置合并后按最终 level/dir 重建
	logger := diag.NewLogger(corrID, "info", "")

	cfg, err := loadConfig(cmd, f)
	if err != nil {
		fprintf(stderr, "配置无效: %v\n", err)
		logger.ErrorWithKV("config", string(diag.Classify(err)), "invalid configuration", &start, map[string]string{"err": err.Error()})
		return fail(exitConfig, err)
	}
	logger = diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer func() { _ = logger.Sync() }()
	logger.Debug("config", "effective", effectiveKV(cfg))

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.ErrorWithKV("config", string(diag.Classify(err)), "startup failed", &start, map[string]string{"err": err.Error()})
		return fail(exitConfig, err)
	}

	term := diag.NewTerminal(cmd.OutOrStdout(), cfg.EchoEnabled())
	metrics := diag.NewMetrics()
	w, err := watch.New(comp, set, logger, watch.WithTerminal(term), watch.WithMetrics(metrics))
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("watch", string(diag.Classify(err)), "startup failed", &start)
		return fail(exitConfig, err)
	}

	if once {
		res, err := w.Pass(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("watch", "manual interruption received", nil)
				return nil
			}
			fprintf(stderr, "运行失败: %v\n", err)
			return fail(exitRuntime, err)
		}
		logger.Info("watch", "single pass finished", map[string]string{
			"read":      strconv.FormatInt(res.Read, 10),
			"triggered": strconv.FormatBool(res.Triggered),
			"replied":   strconv.FormatBool(res.Replied),
			"stop":      strconv.FormatBool(res.Stop),
		})
		return nil
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("watch", string(diag.Classify(err)), "watcher failed", &start)
		fprintf(stderr, "运行失败: %v\n", err)
		return fail(exitRuntime, err)
	}
	return nil
}

// effectiveKV 提取生效配置的关键项（不含密钥）。
func effectiveKV(cfg cfgpkg.Config) map[string]string {
	kv := map[string]string{
		"file":               cfg.File,
		"interval":           cfg.Interval,
		"llm":                cfg.LLM,
		"notify":             strconv.FormatBool(cfg.NotifyEnabled()),
		"echo":               strconv.FormatBool(cfg.EchoEnabled()),
		"max_request_tokens": strconv.Itoa(cfg.MaxRequestTokens),
	}
	if p, ok := cfg.Provider[cfg.LLM]; ok {
		kv["provider_client"] = p.Client
		var s struct {
			BaseURL string `json:"base_url"`
			Model   string `json:"model"`
		}
		_ = json.Unmarshal(p.Options, &s)
		if s.BaseURL != "" {
			kv["base_url"] = s.BaseURL
		}
		if s.Model != "" {
			kv["model"] = s.Model
		}
	}
	return kv
}

func initConfig(stderr io.Writer, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fprintf(stderr, "生成默认配置失败: %v\n", err)
		return fail(exitConfig, err)
	}
	cfgPath := filepath.Join(dir, "config.json")
	created, err := writeConfig(cfgPath, cfgpkg.DefaultTemplateConfig())
	if err != nil {
		fprintf(stderr, "生成默认配置失败: %v\n", err)
		return fail(exitConfig, err)
	}
	if !created {
		fprintf(stderr, "已存在，跳过: %s\n", cfgPath)
	}
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fprintf(stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
	}
	return nil
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

// writeConfig 写出配置；文件已存在时不覆盖并返回 created=false。
func writeConfig(path string, c cfgpkg.Config) (bool, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return false, err
	}
	return true, nil
}
