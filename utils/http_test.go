package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"price-watcher/internal/types"
)

func TestNewHTTPClient(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()

	client := NewHTTPClient(config, logger)

	assert.NotNil(t, client)
	assert.Equal(t, config, client.config)
	assert.Equal(t, logger, client.logger)
	assert.NotNil(t, client.client)
	assert.Equal(t, config.WebhookTimeout, client.client.Timeout)
	assert.NotNil(t, client.limiter)

	client.Close()
}

func TestHTTPClient_PostJSON_Success(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(types.DefaultConfig(), logrus.New())
	defer client.Close()

	err := client.PostJSON(context.Background(), server.URL, map[string]string{"content": "hello"})

	require.NoError(t, err)
	assert.Equal(t, "hello", received["content"])
}

func TestHTTPClient_PostJSON_ErrorStatusIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Invalid Form Body"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(types.DefaultConfig(), logrus.New())
	defer client.Close()

	err := client.PostJSON(context.Background(), server.URL, map[string]string{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 400")
	assert.Contains(t, err.Error(), "Invalid Form Body")
	assert.Equal(t, 1, calls)
}

func TestHTTPClient_PostJSON_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	config := types.DefaultConfig()
	config.WebhookTimeout = 50 * time.Millisecond
	client := NewHTTPClient(config, logrus.New())
	defer client.Close()

	err := client.PostJSON(context.Background(), server.URL, map[string]string{})

	assert.Error(t, err)
}

func TestHTTPClient_PostJSON_ContextCancelled(t *testing.T) {
	client := NewHTTPClient(types.DefaultConfig(), logrus.New())
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := client.PostJSON(ctx, "http://example.com", map[string]string{})

	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestHTTPClient_Close(t *testing.T) {
	client := NewHTTPClient(types.DefaultConfig(), logrus.New())

	// Should not panic
	client.Close()
}
