package stress

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cfgpkg "llmwatch/internal/config"
	"llmwatch/internal/diag"
	"llmwatch/internal/watch"
)

// newWatcher 构造使用 mock provider 的最小可运行 Watcher。
func newWatcher(t *testing.T, path string) *watch.Watcher {
	t.Helper()
	cfg := cfgpkg.DefaultTemplateConfig()
	cfg.File = path
	cfg.LLM = "mock"
	comp, set, err := cfgpkg.Assemble(cfg)
	require.NoError(t, err)
	w, err := watch.New(comp, set, diag.Nop())
	require.NoError(t, err)
	return w
}

// TestStress 在不同文件体量下反复追加内容并执行 pass，记录延迟统计。
func TestStress(t *testing.T) {
	if testing.Short() {
		t.Skip("stress")
	}
	sizes := []int{1 << 10, 64 << 10, 1 << 20, 8 << 20}
	for _, size := range sizes {
		t.Run(fmt.Sprintf("bytes_%d", size), func(t *testing.T) {
			const runs = 10
			path := filepath.Join(t.TempDir(), "mytextfile.txt")
			require.NoError(t, os.WriteFile(path, nil, 0o644))
			w := newWatcher(t, path)
			filler := strings.Repeat("lorem ipsum ", size/12+1)[:size]

			latencies := make([]time.Duration, 0, runs)
			replies := 0
			for i := 0; i < runs; i++ {
				f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
				require.NoError(t, err)
				_, err = f.WriteString(filler)
				require.NoError(t, err)
				// 每隔一轮追加触发
				if i%2 == 1 {
					_, err = fmt.Fprintf(f, "ABCD1234 question %d", i)
					require.NoError(t, err)
				}
				require.NoError(t, f.Close())

				before := w.Cursor()
				start := time.Now()
				res, err := w.Pass(context.Background())
				latencies = append(latencies, time.Since(start))
				require.NoError(t, err)
				require.Equal(t, res.Offset+res.Read, w.Cursor())
				if res.Offset == before {
					require.GreaterOrEqual(t, res.Read, int64(size))
				}
				if res.Replied {
					replies++
				}
			}
			require.Equal(t, runs/2, replies)

			sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
			var total time.Duration
			for _, d := range latencies {
				total += d
			}
			avg := total / time.Duration(len(latencies))
			idx := int(math.Ceil(float64(len(latencies))*0.95)) - 1
			if idx < 0 {
				idx = 0
			}
			t.Logf("体量%d 回复%d 平均%v 95%%延迟%v", size, replies, avg, latencies[idx])
		})
	}
}
