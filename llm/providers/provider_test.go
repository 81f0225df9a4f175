package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModel_ConfigErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewChatModel(ctx, nil)
	assert.Error(t, err)

	_, err = NewChatModel(ctx, &ChatModelConfig{Model: "m"})
	assert.ErrorContains(t, err, "API key")

	_, err = NewChatModel(ctx, &ChatModelConfig{APIKey: "k"})
	assert.ErrorContains(t, err, "model")

	_, err = NewChatModel(ctx, &ChatModelConfig{APIKey: "k", Model: "m", Provider: "openai"})
	assert.ErrorContains(t, err, "base URL")

	_, err = NewChatModel(ctx, &ChatModelConfig{APIKey: "k", Model: "m", Provider: "bedrock-native"})
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestNewChatModel_OpenAICompatibleEndpoint(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "hola"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
	defer srv.Close()

	cm, err := NewChatModel(context.Background(), &ChatModelConfig{
		APIKey:      "k",
		BaseURL:     srv.URL,
		Model:       "test-model",
		Temperature: 0.3,
		HTTPClient:  NewHTTPClient(fastRetries(2)),
	})
	require.NoError(t, err)

	msg, err := cm.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, "hola", msg.Content)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, "test-model", got["model"])
	assert.InDelta(t, 0.3, got["temperature"], 1e-6)
	if assert.NotNil(t, msg.ResponseMeta) && assert.NotNil(t, msg.ResponseMeta.Usage) {
		assert.Equal(t, 5, msg.ResponseMeta.Usage.TotalTokens)
	}
}
