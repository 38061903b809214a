package diag

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName 为日志目录下的当前日志文件名；轮转文件形如 llmwatch-<时间戳>.log。
const LogFileName = "llmwatch.log"

// Logger 为结构化事件日志器：固定事件词汇（comp/stage/code/dur_ms/count/kv），底层由 zap 输出。
// - 控制台：stderr，console 编码；
// - 文件（可选）：dir 下按大小轮转（lumberjack），JSON 单行。
type Logger struct {
	z    *zap.Logger
	sink *lumberjack.Logger
}

// NewLogger 通过配置的 level 初始化；dir 非空时同时写入轮转文件（10MB，保留 5 份）。
func NewLogger(corrID, level, dir string) *Logger {
	return newLogger(corrID, level, dir, os.Stderr)
}

func newLogger(corrID, level, dir string, console io.Writer) *Logger {
	lvl := parseLevel(strings.TrimSpace(level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), lvl),
	}
	var sink *lumberjack.Logger
	if strings.TrimSpace(dir) != "" {
		sink = newFileSink(dir)
		jsonCfg := zap.NewProductionEncoderConfig()
		jsonCfg.TimeKey = "ts"
		jsonCfg.EncodeTime = zapcore.RFC3339TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(jsonCfg), zapcore.AddSync(sink), lvl))
	}
	z := zap.New(zapcore.NewTee(cores...))
	if corrID != "" {
		z = z.With(zap.String("corr_id", corrID))
	}
	return &Logger{z: z, sink: sink}
}

// newFileSink 返回按大小轮转的文件输出；目录在首次写入时创建。
func newFileSink(dir string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
	}
}

// New 包装已有的 zap.Logger（测试可传入 observer core）。
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Nop 返回丢弃一切输出的 Logger。
func Nop() *Logger { return New(nil) }

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Event 为标准事件结构。
type Event struct {
	Comp  string
	Stage string // start|finish|skip|error|info
	Code  string
	DurMS int64
	Count int64
	Msg   string
	KV    map[string]string
}

func (ev Event) fields() []zap.Field {
	fs := make([]zap.Field, 0, 6)
	fs = append(fs, zap.String("comp", ev.Comp))
	if ev.Stage != "" {
		fs = append(fs, zap.String("stage", ev.Stage))
	}
	if ev.Code != "" {
		fs = append(fs, zap.String("code", ev.Code))
	}
	if ev.DurMS != 0 {
		fs = append(fs, zap.Int64("dur_ms", ev.DurMS))
	}
	if ev.Count != 0 {
		fs = append(fs, zap.Int64("count", ev.Count))
	}
	if len(ev.KV) > 0 {
		fs = append(fs, zap.Any("kv", ev.KV))
	}
	return fs
}

func (l *Logger) log(lv zapcore.Level, ev Event) {
	if l == nil || l.z == nil {
		return
	}
	if ce := l.z.Check(lv, ev.Msg); ce != nil {
		ce.Write(ev.fields()...)
	}
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWithKV(comp, msg, nil)
}

// StartWithKV 记录带键值的 start。
func (l *Logger) StartWithKV(comp, msg string, kv map[string]string) *Timer {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "start", Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// Info 记录普通信息事件。
func (l *Logger) Info(comp, msg string, kv map[string]string) {
	l.log(zapcore.InfoLevel, Event{Comp: comp, Stage: "info", Msg: msg, KV: kv})
}

// Debug 输出调试事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg string, kv map[string]string) {
	l.log(zapcore.DebugLevel, Event{Comp: comp, Stage: "info", Msg: msg, KV: kv})
}

// Warn 记录可恢复的跳过事件（stage=skip）。
func (l *Logger) Warn(comp, code, msg string, kv map[string]string) {
	l.log(zapcore.WarnLevel, Event{Comp: comp, Stage: "skip", Code: code, Msg: msg, KV: kv})
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, nil)
}

// ErrorWithKV 支持附带键值对（例如 HTTP 状态码、上游错误片段）。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, kv map[string]string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(zapcore.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, KV: kv})
}

// Sync 刷新缓冲并关闭日志文件。
func (l *Logger) Sync() error {
	if l == nil || l.z == nil {
		return nil
	}
	// stderr 的 Sync 在部分平台返回 EINVAL，忽略
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(zapcore.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, Msg: msg})
}
