package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

type toolResponse struct {
	Result struct {
		IsError bool `json:"isError"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// callTool sends a tools/call request through HandleMessage and decodes the response.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()

	request, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	require.NoError(t, err)

	result := s.HandleMessage(context.Background(), request)
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response toolResponse
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	return response
}

// text returns the first text content of a successful response.
func (r toolResponse) text(t *testing.T) string {
	t.Helper()
	require.Nil(t, r.Error, "unexpected protocol error")
	require.NotEmpty(t, r.Result.Content)
	return r.Result.Content[0].Text
}

func listTools(t *testing.T, s *server.MCPServer) map[string]string {
	t.Helper()

	result := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	tools := make(map[string]string, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		tools[tool.Name] = tool.Description
	}
	return tools
}
