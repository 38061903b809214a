package prompt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmwatch/pkg/contract"
)

// 默认估算器
func TestMakeEstimatorDefault(t *testing.T) {
	est := MakeEstimator(0)
	assert.Equal(t, 2, est("abcdef")) // 6 字节 -> 2 token
	assert.Equal(t, 0, est(""))
	assert.Equal(t, 1, MakeEstimator(8)("abc"))
}

func TestBuildDefaultSystem(t *testing.T) {
	b, err := New(nil)
	require.NoError(t, err)
	p, err := b.Build(context.Background(), "what is a goroutine?")
	require.NoError(t, err)
	assert.Equal(t, contract.ChatPrompt{
		{Role: contract.RoleSystem, Content: DefaultSystem},
		{Role: contract.RoleUser, Content: "what is a goroutine?"},
	}, p)
}

func TestBuildSystemSources(t *testing.T) {
	b, err := New(&Options{InlineSystem: "be terse"})
	require.NoError(t, err)
	assert.Equal(t, "be terse", b.System())

	path := filepath.Join(t.TempDir(), "sys.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file\n"), 0o644))
	b, err = New(&Options{SystemPath: path})
	require.NoError(t, err)
	assert.Equal(t, "from file", b.System())

	_, err = New(&Options{SystemPath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestBuildRejectsEmpty(t *testing.T) {
	b, _ := New(nil)
	_, err := b.Build(context.Background(), "  \n")
	assert.ErrorIs(t, err, contract.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Build(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckBudget(t *testing.T) {
	b, _ := New(&Options{InlineSystem: "abcd"}) // 1 token
	n, err := CheckBudget(b, "abcdefgh", 4, 0)   // 关闭上限
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = CheckBudget(b, "abcdefgh", 4, 3)
	assert.NoError(t, err)

	_, err = CheckBudget(b, "abcdefghi", 4, 3)
	assert.ErrorIs(t, err, contract.ErrBudgetExceeded)
}
