package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

func TestOpenAIClientComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "deepseek-chat",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "Sow paddy in June."}}]
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(ClientConfig{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		SystemPrompt: "You are a farming assistant.",
		MaxTokens:    256,
		Timeout:      time.Second,
	})
	require.NoError(t, err)

	reply, err := client.Complete(context.Background(), []Message{
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello!"},
		{Role: RoleUser, Content: "When do I sow paddy?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sow paddy in June.", reply)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "When do I sow paddy?", got.Messages[3].Content)
}

func TestOpenAIClientDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	relay := NewRelay(client)
	_, err = relay.Send(context.Background(), "hello")
	var failure *RelayFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, relay.History())
}

func TestOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(ClientConfig{})
	assert.Error(t, err)
}

func TestOpenAIClientRejectsUnknownRole(t *testing.T) {
	client, err := NewOpenAIClient(ClientConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	_, err = client.Complete(context.Background(), []Message{{Role: "tool", Content: "x"}})
	assert.Error(t, err)
}
