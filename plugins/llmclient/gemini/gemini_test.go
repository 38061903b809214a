package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"llmwatch/pkg/contract"
)

func TestCompleteSuccess(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hello from gemini"}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(json.RawMessage(`{"base_url":"` + srv.URL + `","api_key":"g-test","model":"gemini-test"}`))
	require.NoError(t, err)
	raw, err := c.Complete(context.Background(), contract.ChatPrompt{
		{Role: contract.RoleSystem, Content: "be brief"},
		{Role: contract.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello from gemini", raw.Text)
	assert.Contains(t, body, "be brief")
	assert.Contains(t, body, `"hi"`)
}

func TestCompleteInvalidPrompt(t *testing.T) {
	c, err := New(json.RawMessage(`{"api_key":"g"}`))
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), 1)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
	_, err = c.Complete(context.Background(), contract.ChatPrompt{{Role: contract.RoleSystem, Content: "only system"}})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestNewMissingKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := New(nil)
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(genai.APIError{Code: 429}), contract.ErrRateLimited)
	assert.ErrorIs(t, classify(genai.APIError{Code: 403}), contract.ErrUnauthorized)
	assert.ErrorIs(t, classify(genai.APIError{Code: 400}), contract.ErrInvalidInput)

	var ne net.Error
	assert.True(t, errors.As(classify(genai.APIError{Code: 502, Message: "bad gateway"}), &ne))

	plain := errors.New("dial tcp: refused")
	assert.Equal(t, plain, classify(plain))
}
