package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
)

func gateway(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLLMConfig(url string) config.LLMConfig {
	return config.LLMConfig{GatewayURL: url, APIKey: "test-key", Model: "test-model", Temperature: 0.7, MaxTokens: 800}
}

func TestLangchainCompleterReturnsContent(t *testing.T) {
	srv := gateway(t, http.StatusOK, "Restart the router.")
	c, err := NewLangchainCompleter(testLLMConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	text, err := c.Complete(context.Background(), "system", "my wifi is slow")
	require.NoError(t, err)
	assert.Equal(t, "Restart the router.", text)
}

func TestLangchainCompleterCapturesStatus(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusPaymentRequired, http.StatusUnauthorized} {
		srv := gateway(t, status, "")
		c, err := NewLangchainCompleter(testLLMConfig(srv.URL), srv.Client())
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), "system", "hello")
		var upstream *UpstreamError
		require.True(t, errors.As(err, &upstream), "status %d", status)
		assert.Equal(t, status, upstream.StatusCode)
	}
}

func TestLangchainCompleterThrottles(t *testing.T) {
	srv := gateway(t, http.StatusOK, "ok")
	cfg := testLLMConfig(srv.URL)
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	c, err := NewLangchainCompleter(cfg, srv.Client())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "system", "first")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "system", "second")
	assert.ErrorIs(t, err, ErrThrottled)
}

func TestMissingKeyYieldsUnconfiguredCompleter(t *testing.T) {
	c, err := NewLangchainCompleter(config.LLMConfig{}, nil)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "system", "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
