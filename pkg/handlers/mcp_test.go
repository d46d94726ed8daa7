package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/mcp"
)

func newMCPMux(t *testing.T) *http.ServeMux {
	t.Helper()

	s := mcp.NewServer("test", "1.0.0", nil, zap.NewNop())
	s.RegisterTool(mcplib.NewTool("echo", mcplib.WithString("text", mcplib.Required())),
		func(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			text, err := req.RequireString("text")
			if err != nil {
				return mcplib.NewToolResultError(err.Error()), nil
			}
			return mcplib.NewToolResultText(text), nil
		})

	mux := http.NewServeMux()
	NewMCPHandler(s, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestMCPHandler_RejectsNonPOST(t *testing.T) {
	mux := newMCPMux(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete, http.MethodPut} {
		req := httptest.NewRequest(method, "/mcp", nil)
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "POST", rec.Header().Get("Allow"), method)
	}
}

func TestMCPHandler_ToolCall(t *testing.T) {
	mux := newMCPMux(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hola"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Content, 1)
	assert.Equal(t, "hola", resp.Result.Content[0].Text)
}
