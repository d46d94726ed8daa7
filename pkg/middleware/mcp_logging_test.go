package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/asistentebi/bi-engine/pkg/logging"
)

func serveMCP(t *testing.T, logger *zap.Logger, reqBody, respBody string) *httptest.ResponseRecorder {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(respBody))
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(reqBody))
	req = req.WithContext(logging.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()
	MCPRequestLogger(logger)(handler).ServeHTTP(rec, req)
	return rec
}

func TestMCPRequestLogger(t *testing.T) {
	t.Run("logs successful tool call", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		rec := serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"query_database","arguments":{"query":"SELECT nombre\n  FROM vendedores"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"content":[{"type":"text","text":"[]"}]}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 2, logs.Len(), "Should log request and response")

		requestLog := logs.All()[0]
		assert.Equal(t, "MCP request", requestLog.Message)
		assert.Equal(t, "tools/call", requestLog.ContextMap()["method"])
		assert.Equal(t, "query_database", requestLog.ContextMap()["tool"])
		assert.Equal(t, "req-1", requestLog.ContextMap()["request_id"])
		args, ok := requestLog.ContextMap()["arguments"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "SELECT nombre FROM vendedores", args["query"])

		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response success", responseLog.Message)
		assert.Equal(t, "query_database", responseLog.ContextMap()["tool"])
		assert.NotNil(t, responseLog.ContextMap()["duration"])
	})

	t.Run("logs protocol error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"missing_tool","arguments":{}}}`,
			`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"tool not found"}}`)

		require.Equal(t, 2, logs.Len())
		responseLog := logs.All()[1]
		assert.Equal(t, "MCP response error", responseLog.Message)
		assert.Equal(t, int64(-32602), responseLog.ContextMap()["error_code"])
		assert.Equal(t, "tool not found", responseLog.ContextMap()["error_message"])
	})

	t.Run("logs tool result flagged isError", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		serveMCP(t, zap.New(core),
			`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"ask","arguments":{"prompt":"hola"}}}`,
			`{"jsonrpc":"2.0","id":1,"result":{"isError":true,"content":[{"type":"text","text":"Cuota de IA excedida"}]}}`)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "MCP tool error", logs.All()[1].Message)
	})

	t.Run("request body is still readable downstream", func(t *testing.T) {
		body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
		var seen string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
		})

		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(body))
		MCPRequestLogger(zap.NewNop())(handler).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, body, seen)
	})

	t.Run("nil logger passes through", func(t *testing.T) {
		called := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

		req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewBufferString(`{}`))
		MCPRequestLogger(nil)(handler).ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, called)
	})
}

func TestSanitizeArguments(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := sanitizeArguments(map[string]any{
		"query":  "SELECT *\nFROM ventas",
		"prompt": long,
		"limit":  float64(10),
		"dsn":    "host=db password=hunter2",
	})

	assert.Equal(t, "SELECT * FROM ventas", got["query"])
	assert.Equal(t, logging.MaxQueryLogLength+3, len(got["prompt"].(string)))
	assert.Equal(t, float64(10), got["limit"])
	assert.Equal(t, "host=db password=[REDACTED]", got["dsn"])
	assert.Nil(t, sanitizeArguments(nil))
}
