package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Terminal: 终端信息提示（非日志）。
// - 输出到提供的 io.Writer（默认 stdout），回显请求与回复正文；
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	mu      sync.Mutex
}

// NewTerminal 构造终端提示器。enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stdout
	}
	return &Terminal{w: w, enabled: enabled}
}

// RunStart 打印监视开始行。
func (t *Terminal) RunStart(path string, interval time.Duration, llm string) {
	t.printf("[watch] %s | 间隔=%s | llm=%s\n", path, interval, llm)
}

// Request 回显发往模型的请求正文。
func (t *Terminal) Request(q string) {
	t.printf("[request] %s\n", strings.TrimRight(q, "\n"))
}

// Reply 回显模型回复正文。
func (t *Terminal) Reply(r string) {
	t.printf("[reply] %s\n", strings.TrimRight(r, "\n"))
}

// Skip 提示本次触发未更新文件。
func (t *Terminal) Skip(reason string) {
	t.printf("[skip] %s\n", reason)
}

// RunFinish 打印结束行。
func (t *Terminal) RunFinish(reason string, replies int64, d time.Duration) {
	t.printf("[done] %s | 回复 %d | 总用时 %s\n", reason, replies, d.Round(100*time.Millisecond))
}

func (t *Terminal) printf(format string, a ...any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if _, err := fmt.Fprintf(t.w, format, a...); err != nil {
		t.enabled = false
	}
}
