package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompletion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/chat/completions")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":    "chatcmpl-1",
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": "Ihre Projekte in Hamburg"}},
			},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", ts.URL)
	resp, err := client.CreateCompletion(context.Background(), CompletionRequest{
		Model:       "gpt-4o-mini",
		System:      "Du schreibst Icebreaker.",
		Prompt:      "Hallo",
		MaxTokens:   150,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ihre Projekte in Hamburg", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 40, resp.PromptTokens)
	assert.Equal(t, 8, resp.CompletionTokens)
}

func TestCreateCompletion_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"error": map[string]any{"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"},
		})
	}))
	defer ts.Close()

	client := NewClient("test-key", ts.URL)
	_, err := client.CreateCompletion(context.Background(), CompletionRequest{Model: "gpt-4o-mini", Prompt: "Hallo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: create chat completion")
	assert.True(t, IsRateLimited(err))
}

func TestCreateCompletion_EmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}}) //nolint:errcheck
	}))
	defer ts.Close()

	_, err := NewClient("k", ts.URL).CreateCompletion(context.Background(), CompletionRequest{Prompt: "Hallo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestStatusCode_Plain(t *testing.T) {
	assert.Equal(t, 0, StatusCode(assert.AnError))
	assert.False(t, IsRateLimited(nil))
}
