//go:build !windows

package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmwatch/pkg/contract"
)

// 符号链接跟随到常规文件
func TestReadFromSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(target, []byte("ok"), 0o644))
	link := filepath.Join(dir, "l.txt")
	require.NoError(t, os.Symlink(target, link))

	c, err := New(nil).ReadFrom(context.Background(), link, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", c.Text)
}

// 非常规文件（FIFO）被拒绝；以非阻塞方式打开写端避免 Open 阻塞
func TestReadFromFIFO(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "fifo")
	require.NoError(t, syscall.Mkfifo(fifo, 0o644))
	w, err := os.OpenFile(fifo, os.O_RDWR, 0)
	require.NoError(t, err)
	defer w.Close()

	_, err = New(nil).ReadFrom(context.Background(), fifo, 0)
	assert.ErrorIs(t, err, contract.ErrPathInvalid)
}
