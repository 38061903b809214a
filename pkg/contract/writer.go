package contract

import (
	"context"
	"io"
)

// Writer: 以 r 的全部字节替换 path 的内容（破坏性写入）。
// 约束：
//  1. 单写者，不加锁；
//  2. 流式写入，按字节透传；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, path string, r io.Reader) error
}
