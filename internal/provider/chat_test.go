package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewChatClient(ChatClientConfig{
		Name:    "openai",
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-3.5-turbo",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestCompleteHappyPath(t *testing.T) {
	var captured chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "generated text"}},
			},
		})
	})

	text, err := client.Complete(context.Background(), "write something", 600)
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)

	assert.Equal(t, "gpt-3.5-turbo", captured.Model)
	assert.Equal(t, 600, captured.MaxTokens)
	assert.InDelta(t, 0.7, captured.Temperature, 0.001)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "write something", captured.Messages[1].Content)
}

func TestCompleteUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited"},
		})
	})

	_, err := client.Complete(context.Background(), "write something", 600)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.Status)
	assert.Equal(t, "rate limited", perr.Message)
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Complete(context.Background(), "write something", 600)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteBlankBodyIsEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "   "}},
			},
		})
	})

	_, err := client.Complete(context.Background(), "write something", 600)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "write something", 600)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, perr.Err, context.DeadlineExceeded)
}

func TestNewFromConfigDefaults(t *testing.T) {
	cfg := config.Config{}
	cfg.Provider.Name = "openrouter"
	cfg.Provider.APIKey = "k"

	p, err := NewFromConfig(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name())

	client, ok := p.(*ChatClient)
	require.True(t, ok)
	assert.Equal(t, "https://openrouter.ai/api/v1", client.baseURL)
	assert.Equal(t, "openai/gpt-3.5-turbo", client.model)
}

func TestNewFromConfigUnknown(t *testing.T) {
	cfg := config.Config{}
	cfg.Provider.Name = "acme"

	_, err := NewFromConfig(cfg, zap.NewNop())
	assert.Error(t, err)
}
