package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete(t *testing.T) {
	var captured map[string]interface{}
	srv := newTestServer(t, func(w http.ResponseWriter, body map[string]interface{}) {
		captured = body
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"to_email\":\"bob@example.com\"}"}}],"usage":{"total_tokens":12}}`))
	})

	client := NewOpenAIClient("sk-test", srv.URL+"/v1", zap.NewNop())
	got, err := client.Complete(context.Background(), core.ChatRequest{
		Model:       "gpt-4o-mini",
		System:      "sys",
		User:        "email bob",
		Temperature: 0.4,
		MaxTokens:   200,
		JSONOnly:    true,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"to_email":"bob@example.com"}`, got)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.InDelta(t, 0.4, captured["temperature"], 1e-6)
	assert.Equal(t, float64(200), captured["max_tokens"])
	format, ok := captured["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])

	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "email bob", messages[1].(map[string]interface{})["content"])
}

func TestComplete_NoJSONMode(t *testing.T) {
	var captured map[string]interface{}
	srv := newTestServer(t, func(w http.ResponseWriter, body map[string]interface{}) {
		captured = body
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	})

	client := NewOpenAIClient("sk-test", srv.URL+"/v1", zap.NewNop())
	got, err := client.Complete(context.Background(), core.ChatRequest{Model: "m", User: "u"})

	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.NotContains(t, captured, "response_format")
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	client := NewOpenAIClient("sk-test", srv.URL+"/v1", zap.NewNop())
	_, err := client.Complete(context.Background(), core.ChatRequest{Model: "m", User: "u"})
	assert.ErrorContains(t, err, "empty response")
}

func TestComplete_APIError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, _ map[string]interface{}) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	client := NewOpenAIClient("sk-test", srv.URL+"/v1", zap.NewNop())
	_, err := client.Complete(context.Background(), core.ChatRequest{Model: "m", User: "u"})
	assert.ErrorContains(t, err, "OpenAI")
}
