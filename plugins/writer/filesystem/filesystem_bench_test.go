package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

// BenchmarkWrite 基准测试 Writer.Write。不同输入尺寸与写入模式下测量写入性能。
func BenchmarkWrite(b *testing.B) {
	sizes := []int{1024, 1024 * 1024}
	for _, atomic := range []bool{false, true} {
		for _, sz := range sizes {
			b.Run(fmt.Sprintf("atomic=%v/size=%d", atomic, sz), func(b *testing.B) {
				data := bytes.Repeat([]byte("a"), sz)
				fp := filepath.Join(b.TempDir(), "out.txt")
				w := New(&Options{Atomic: atomic})
				ctx := context.Background()
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := w.Write(ctx, fp, bytes.NewReader(data)); err != nil {
						b.Fatalf("写入失败: %v", err)
					}
				}
			})
		}
	}
}
