package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"price-watcher/internal/state"
	"price-watcher/internal/types"
	"price-watcher/scheduler"
)

type stubWatcher struct {
	triggerErr error
	triggered  int
	status     scheduler.Status
}

func (s *stubWatcher) Trigger() error {
	s.triggered++
	return s.triggerErr
}

func (s *stubWatcher) Status() scheduler.Status { return s.status }

func newTestServer(t *testing.T, watcher Watcher) (*Server, *types.Config) {
	config := types.DefaultConfig()
	config.StatePath = filepath.Join(t.TempDir(), "state.json")
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewServer(config, logger, watcher), config
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, &stubWatcher{})
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, decode(t, rec)["success"])
}

func TestState(t *testing.T) {
	server, config := newTestServer(t, &stubWatcher{})
	require.NoError(t, state.Save(config.StatePath, state.Store{
		"https://www.ceneo.pl/1": {Name: "Laptop", LastAmountMinorUnits: 239900, LastSeenAt: time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)},
	}))
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	record := data["https://www.ceneo.pl/1"].(map[string]interface{})
	assert.Equal(t, float64(239900), record["lastAmountMinorUnits"])
}

func TestLastRun(t *testing.T) {
	watcher := &stubWatcher{status: scheduler.Status{Running: true, LastError: "read state.json: permission denied"}}
	server, _ := newTestServer(t, watcher)
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/last-run", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, true, data["running"])
	assert.Equal(t, "read state.json: permission denied", data["lastError"])
}

func TestCheck(t *testing.T) {
	watcher := &stubWatcher{}
	server, _ := newTestServer(t, watcher)
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, watcher.triggered)
}

func TestCheck_Busy(t *testing.T) {
	server, _ := newTestServer(t, &stubWatcher{triggerErr: scheduler.ErrRunInProgress})
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestCheck_WrongMethod(t *testing.T) {
	server, _ := newTestServer(t, &stubWatcher{})
	rec := httptest.NewRecorder()

	server.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/check", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCheck_WithRealWatcher(t *testing.T) {
	release := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context) (*types.RunReport, error) {
		<-release
		return &types.RunReport{}, nil
	})
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	watcher := scheduler.NewPriceWatcher(types.DefaultConfig(), logger, runner)
	server, _ := newTestServer(t, watcher)
	handler := server.Routes()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/v1/check", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/v1/check", nil))

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusConflict, second.Code)

	close(release)
	watcher.Stop()
}

type runnerFunc func(ctx context.Context) (*types.RunReport, error)

func (f runnerFunc) RunOnce(ctx context.Context) (*types.RunReport, error) { return f(ctx) }
