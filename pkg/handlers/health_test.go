package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/config"
)

type fakeReadiness struct{ model, store bool }

func (f fakeReadiness) Ready() (bool, bool) { return f.model, f.store }

func testConfig() *config.Config {
	return &config.Config{
		AppName: "AsistenteBi",
		Version: "test-version",
		Env:     "test",
		Database: config.DatabaseConfig{
			Type: "postgres",
		},
		Assistant: config.AssistantConfig{
			Mode: config.ModeTools,
		},
	}
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(testConfig(), nil, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthHandler_Ping(t *testing.T) {
	handler := NewHealthHandler(testConfig(), fakeReadiness{model: true}, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Ping(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var response PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "test-version", response.Version)
	assert.Equal(t, "AsistenteBi", response.Service)
	assert.Equal(t, runtime.Version(), response.GoVersion)
	assert.NotEmpty(t, response.Hostname)
	assert.Equal(t, "test", response.Environment)
	assert.Equal(t, config.ModeTools, response.Mode)
	assert.Equal(t, "postgres", response.Dialect)
	assert.True(t, response.ModelReady)
	assert.False(t, response.StoreReady)
}

func TestHealthHandler_RejectsOtherMethods(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthHandler(testConfig(), nil, zap.NewNop()).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
