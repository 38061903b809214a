package contract

import "context"

// Reader: 被监视文件的增量读取。
// 约束：
// 1) 从 offset 读取至 EOF，单次调用、同步返回；
// 2) offset 超过当前文件长度时从 0 开始读，并在 Chunk.Offset 中如实反映；
// 3) 文件不存在等 I/O 错误原样上抛。
type Reader interface {
	ReadFrom(ctx context.Context, path string, offset int64) (Chunk, error)
}
