package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ReadinessReporter reports which lazily created clients exist.
type ReadinessReporter interface {
	Ready() (model, store bool)
}

type healthResult struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	ModelReady bool   `json:"model_ready"`
	StoreReady bool   `json:"store_ready"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and which clients are initialized.
func RegisterHealthTool(s *server.MCPServer, version string, readiness ReadinessReporter) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := healthResult{Status: "ok", Version: version}
		if readiness != nil {
			res.ModelReady, res.StoreReady = readiness.Ready()
		}
		result, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
