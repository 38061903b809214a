package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"llmwatch/pkg/contract"
)

// Options 为 FileSystem Reader 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
}

// FileSystem 以游标偏移增量读取单个常规文件。
type FileSystem struct {
	bufSize int
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		b = opts.BufSize
	}
	return &FileSystem{bufSize: b}
}

var _ contract.Reader = (*FileSystem)(nil)

// ReadFrom 从 offset 读取至 EOF。
// 文件被截断到 offset 之前时从头读取（Chunk.Offset=0）。
// 符号链接跟随到常规文件；目录与非常规文件返回 ErrPathInvalid。
func (r *FileSystem) ReadFrom(ctx context.Context, path string, offset int64) (contract.Chunk, error) {
	select {
	case <-ctx.Done():
		return contract.Chunk{}, ctx.Err()
	default:
	}
	if strings.TrimSpace(path) == "" {
		return contract.Chunk{}, contract.ErrPathInvalid
	}

	f, err := os.Open(path)
	if err != nil {
		return contract.Chunk{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return contract.Chunk{}, err
	}
	if !info.Mode().IsRegular() {
		return contract.Chunk{}, fmt.Errorf("%s: %w", path, contract.ErrPathInvalid)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return contract.Chunk{}, err
		}
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, readerWithCtx(ctx, bufio.NewReaderSize(f, r.bufSize))); err != nil {
		return contract.Chunk{}, err
	}
	return contract.Chunk{Offset: offset, Text: sb.String()}, nil
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
