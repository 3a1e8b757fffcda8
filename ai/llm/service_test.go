package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callRecord captures one RecordLLMCall invocation.
type callRecord struct {
	model            string
	provider         string
	promptTokens     int
	completionTokens int
	success          bool
}

type stubRecorder struct {
	calls []callRecord
}

func (r *stubRecorder) RecordLLMCall(model, provider string, _ time.Duration, promptTokens, completionTokens int, success bool) {
	r.calls = append(r.calls, callRecord{model, provider, promptTokens, completionTokens, success})
}

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "- Genre: Jazz\n  Note: n"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20}
}`

func newCompletionServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestServiceChat_RecordsCall(t *testing.T) {
	ts := newCompletionServer(t, http.StatusOK, completionBody)

	rec := &stubRecorder{}
	svc, err := NewService(&Config{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		BaseURL:  ts.URL,
	}, WithRecorder(rec))
	require.NoError(t, err)

	content, stats, err := svc.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Contains(t, content, "Jazz")
	require.NotNil(t, stats)
	assert.Equal(t, 20, stats.TotalTokens)

	require.Len(t, rec.calls, 1)
	call := rec.calls[0]
	assert.Equal(t, "gpt-4o-mini", call.model)
	assert.Equal(t, "openai", call.provider)
	assert.Equal(t, 12, call.promptTokens)
	assert.Equal(t, 8, call.completionTokens)
	assert.True(t, call.success)
}

func TestServiceChat_RecordsFailure(t *testing.T) {
	ts := newCompletionServer(t, http.StatusInternalServerError, `{"error": {"message": "boom"}}`)

	rec := &stubRecorder{}
	svc, err := NewService(&Config{
		Provider: "openai",
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		BaseURL:  ts.URL,
	}, WithRecorder(rec))
	require.NoError(t, err)

	_, _, err = svc.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)

	require.Len(t, rec.calls, 1)
	assert.False(t, rec.calls[0].success)
}

func TestNewService_MockProvider(t *testing.T) {
	svc, err := NewService(&Config{Provider: "mock"})
	require.NoError(t, err)
	_, ok := svc.(*MockService)
	assert.True(t, ok)
}
