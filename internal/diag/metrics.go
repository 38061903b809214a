package diag

import (
	"strconv"
	"sync"
)

// Metrics 为进程内最小计数器，键名参考：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计值）
// nil 接收者上的调用均为 no-op。
type Metrics struct {
	mu   sync.Mutex
	ops  map[string]int64
	errs map[string]int64
	durs map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{ops: map[string]int64{}, errs: map[string]int64{}, durs: map[string]int64{}}
}

// IncOp 累加操作计数（result=success|error|skip）。
func (m *Metrics) IncOp(comp, stage, result string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.ops[comp+"."+stage+"."+result]++
	m.mu.Unlock()
}

// IncError 按分类累加错误计数。
func (m *Metrics) IncError(comp, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.errs[comp+"."+code]++
	m.mu.Unlock()
}

// ObserveDuration 累计阶段耗时（毫秒）。
func (m *Metrics) ObserveDuration(comp, stage string, durMS int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.durs[comp+"."+stage] += durMS
	m.mu.Unlock()
}

// Op 返回 op_total 当前值。
func (m *Metrics) Op(comp, stage, result string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ops[comp+"."+stage+"."+result]
}

// Errors 返回 error_total 当前值。
func (m *Metrics) Errors(comp, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[comp+"."+code]
}

// Snapshot 拍平为日志键值。
func (m *Metrics) Snapshot() map[string]string {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.ops)+len(m.errs)+len(m.durs))
	for k, v := range m.ops {
		out["op."+k] = itoa64(v)
	}
	for k, v := range m.errs {
		out["error."+k] = itoa64(v)
	}
	for k, v := range m.durs {
		out["dur_ms."+k] = itoa64(v)
	}
	return out
}

func itoa(n int) string     { return strconv.Itoa(n) }
func itoa64(n int64) string { return strconv.FormatInt(n, 10) }
