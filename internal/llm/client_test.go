package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionsResponse(content, model string, tokens int) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"model": model,
		"usage": map[string]int{"total_tokens": tokens},
	}
	body, _ := json.Marshal(payload)
	return string(body)
}

func TestClient_Complete(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionsResponse(`{"ok":true}`, "test-model", 421)))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		Model:   "test/model",
		BaseURL: server.URL,
		Referer: "https://example.com",
		Title:   "Example",
	})
	require.NoError(t, err)

	result, err := client.Complete(context.Background(), "system prompt", "user prompt", 2048)
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, result.Text)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, 421, result.TokensUsed)
	assert.Greater(t, result.Duration, time.Duration(0))

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "https://example.com", gotReferer)
	assert.Equal(t, "Example", gotTitle)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, 2048, gotReq.MaxTokens)
}

func TestClient_CompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestClient_CompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", 100)
	assert.Error(t, err)
}

func TestClient_CompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(completionsResponse("late", "m", 1)))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "u", 100)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestMockClient_ReplaysScript(t *testing.T) {
	mock := NewMockClient("first", "second")

	r1, err := mock.Complete(context.Background(), "s", "u", 1)
	require.NoError(t, err)
	r2, err := mock.Complete(context.Background(), "s", "u", 1)
	require.NoError(t, err)
	r3, err := mock.Complete(context.Background(), "s", "u", 1)
	require.NoError(t, err)

	assert.Equal(t, "first", r1.Text)
	assert.Equal(t, "second", r2.Text)
	// Exhausted scripts repeat the last entry.
	assert.Equal(t, "second", r3.Text)
	assert.Equal(t, 3, mock.Calls())
}
