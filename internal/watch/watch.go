// Package watch 实现单文件轮询循环：读取新增内容 → 检测触发标记 → 调用模型 → 覆盖写回。
package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"llmwatch/internal/diag"
	"llmwatch/internal/prompt"
	"llmwatch/internal/trigger"
	"llmwatch/pkg/contract"
)

// - 单处理协程：所有 pass 串行执行，游标仅由循环协程读写。
// - 模型失败与空回复视为“无响应”：记录告警、文件不变、循环继续。
// - 读写失败为致命错误：记录并结束循环。
// - 游标不持久化；文件缩短到游标之前时从头读取。

// DefaultBanner 为写回文件时置于回复之前的分隔横幅。
const DefaultBanner = "\n-------------------------------\n"

// DefaultInterval 为两次 pass 之间的默认等待。
const DefaultInterval = 5 * time.Second

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader contract.Reader
	Writer contract.Writer
	LLM    contract.LLMClient
	Prompt *prompt.Builder
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Path       string
	Interval   time.Duration
	Trigger    string
	StopMarker string // 为空表示不检测停止标记
	Banner     string
	// 请求预算：>0 时估算 system+request 的 token，超限跳过本次调用
	MaxRequestTokens int
	BytesPerToken    int
	// Notify: 监听文件所在目录的写事件以提前唤醒；固定间隔仍为兜底
	Notify bool
	// LLMName 仅用于日志与终端展示
	LLMName string
}

// PassResult 描述一次 pass 的结果。
type PassResult struct {
	Offset    int64 // 本次实际读取起点（截断后为 0）
	Read      int64 // 本次读取字节数
	Triggered bool
	Request   string
	Replied   bool
	Stop      bool
}

// Watcher 持有游标并驱动 pass。非并发安全：Pass 与 Run 不得并发调用。
type Watcher struct {
	comp    Components
	set     Settings
	log     *diag.Logger
	metrics *diag.Metrics
	term    *diag.Terminal
	cursor  int64
}

// Option 调整 Watcher 的可选依赖。
type Option func(*Watcher)

// WithMetrics 使用外部计数器（默认内部新建）。
func WithMetrics(m *diag.Metrics) Option { return func(w *Watcher) { w.metrics = m } }

// WithTerminal 启用请求/回复回显。
func WithTerminal(t *diag.Terminal) Option { return func(w *Watcher) { w.term = t } }

// New 校验组件与设置并构造 Watcher；logger 可为 nil。
func New(comp Components, set Settings, logger *diag.Logger, opts ...Option) (*Watcher, error) {
	if err := sanity(comp, set); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	if set.Interval <= 0 {
		set.Interval = DefaultInterval
	}
	if set.Banner == "" {
		set.Banner = DefaultBanner
	}
	if logger == nil {
		logger = diag.Nop()
	}
	w := &Watcher{comp: comp, set: set, log: logger}
	for _, o := range opts {
		o(w)
	}
	if w.metrics == nil {
		w.metrics = diag.NewMetrics()
	}
	return w, nil
}

func sanity(comp Components, set Settings) error {
	if comp.Reader == nil || comp.Writer == nil || comp.LLM == nil || comp.Prompt == nil {
		return fmt.Errorf("%w: missing component", contract.ErrInvariantViolation)
	}
	if strings.TrimSpace(set.Path) == "" {
		return fmt.Errorf("%w: empty path", contract.ErrPathInvalid)
	}
	if set.Trigger == "" {
		return fmt.Errorf("%w: empty trigger marker", contract.ErrInvariantViolation)
	}
	if set.StopMarker != "" && strings.Contains(set.Trigger, set.StopMarker) {
		return fmt.Errorf("%w: trigger marker contains stop marker", contract.ErrInvariantViolation)
	}
	return nil
}

// Cursor 返回当前游标（下一次读取的字节偏移）。
func (w *Watcher) Cursor() int64 { return w.cursor }

// Metrics 返回计数器。
func (w *Watcher) Metrics() *diag.Metrics { return w.metrics }

// Compose 构造写回文件的完整内容。
func Compose(banner, reply string) string { return banner + reply + "\n" }

// Pass 执行一次处理：读取游标后的新内容，按需调用模型并覆盖写回。
// 返回错误仅限致命错误（读写失败、取消）；模型失败不返回错误。
func (w *Watcher) Pass(ctx context.Context) (PassResult, error) {
	var res PassResult
	w.metrics.IncOp("watch", "pass", "start")

	chunk, err := w.comp.Reader.ReadFrom(ctx, w.set.Path, w.cursor)
	if err != nil {
		w.fail("reader", "read failed", err)
		return res, fmt.Errorf("reader read: %w", err)
	}
	if chunk.Offset != w.cursor {
		w.log.Info("reader", "file shrank, reading from start", map[string]string{
			"cursor": strconv.FormatInt(w.cursor, 10),
		})
	}
	res.Offset = chunk.Offset
	res.Read = int64(len(chunk.Text))
	// 无论后续结果如何，游标均前进本次读取的字节数
	defer func() { w.cursor = chunk.End() }()
	w.log.Debug("reader", "read", map[string]string{
		"offset": strconv.FormatInt(chunk.Offset, 10),
		"bytes":  strconv.FormatInt(res.Read, 10),
	})

	if trigger.Contains(chunk.Text, w.set.StopMarker) {
		res.Stop = true
		w.metrics.IncOp("trigger", "stop", "hit")
		return res, nil
	}

	request, ok := trigger.Extract(chunk.Text, w.set.Trigger)
	if !ok {
		w.metrics.IncOp("watch", "pass", "idle")
		return res, nil
	}
	res.Triggered = true
	res.Request = request
	w.metrics.IncOp("trigger", "detect", "hit")

	if request == "" {
		w.log.Warn("trigger", string(diag.CodeInvariant), "trigger found but request is empty, skipping", nil)
		w.metrics.IncOp("watch", "pass", "skip")
		return res, nil
	}
	w.term.Request(request)

	if w.set.MaxRequestTokens > 0 {
		est, berr := prompt.CheckBudget(w.comp.Prompt, request, w.set.BytesPerToken, w.set.MaxRequestTokens)
		if berr != nil {
			w.log.Warn("prompt", string(diag.CodeBudget), "request over token budget, skipping", map[string]string{
				"tokens": strconv.Itoa(est),
				"limit":  strconv.Itoa(w.set.MaxRequestTokens),
			})
			w.metrics.IncOp("watch", "pass", "skip")
			w.term.Skip("请求超出 token 预算")
			return res, nil
		}
	}

	p, err := w.comp.Prompt.Build(ctx, request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		w.fail("prompt", "build failed", err)
		return res, fmt.Errorf("prompt build: %w", err)
	}

	tm := w.log.StartWithKV("llm", "sending request", map[string]string{
		"request_bytes": strconv.Itoa(len(request)),
	})
	t0 := time.Now()
	raw, err := w.comp.LLM.Complete(ctx, p)
	w.metrics.ObserveDuration("llm", "complete", time.Since(t0).Milliseconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		code := diag.Classify(err)
		kv := diag.UpstreamKV(err)
		if kv == nil {
			kv = map[string]string{}
		}
		kv["err"] = err.Error()
		w.log.Warn("llm", string(code), "no response received, skipping update", kv)
		w.metrics.IncOp("llm", "complete", "error")
		w.metrics.IncError("llm", string(code))
		w.term.Skip("无响应")
		return res, nil
	}
	if raw.Text == "" {
		w.log.Warn("llm", string(diag.CodeProtocol), "empty reply, skipping update", nil)
		w.metrics.IncOp("llm", "complete", "empty")
		w.term.Skip("空回复")
		return res, nil
	}
	tm.Finish("response received", int64(len(raw.Text)))
	w.metrics.IncOp("llm", "complete", "success")
	w.term.Reply(raw.Text)

	wt := w.log.Start("writer", "writing response")
	if err := w.comp.Writer.Write(ctx, w.set.Path, strings.NewReader(Compose(w.set.Banner, raw.Text))); err != nil {
		w.fail("writer", "write failed", err)
		return res, fmt.Errorf("writer write: %w", err)
	}
	w.metrics.IncOp("writer", "write", "success")
	wt.Finish("file updated with response", int64(len(raw.Text)))
	res.Replied = true
	return res, nil
}

func (w *Watcher) fail(comp, msg string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	code := diag.Classify(err)
	w.log.ErrorWithKV(comp, string(code), msg, nil, map[string]string{"err": err.Error()})
	w.metrics.IncOp(comp, "error", "error")
	w.metrics.IncError(comp, string(code))
}
