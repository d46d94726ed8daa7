package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/services"
)

// ToolExecutor runs SQL for tool callers and always answers with text.
type ToolExecutor interface {
	ExecuteTool(ctx context.Context, sqlQuery string) string
}

// RegisterQueryDatabaseTool exposes the same query_database tool the model is bound to.
// The SQL is executed as given, so the tool is annotated as destructive.
// Store failures come back as the "Error ejecutando SQL: ..." text, flagged isError.
func RegisterQueryDatabaseTool(s *server.MCPServer, executor ToolExecutor) {
	def := llm.QueryDatabaseToolDefinition()
	tool := mcp.NewTool(
		def.Name,
		mcp.WithDescription(def.Description),
		mcp.WithString(
			llm.QueryArgument,
			mcp.Required(),
			mcp.Description("Una única sentencia SQL SELECT con alias legibles y LIMIT"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString(llm.QueryArgument)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		query = strings.TrimSpace(query)
		if query == "" {
			return NewErrorResult("invalid_parameters", "query must not be empty"), nil
		}

		out := executor.ExecuteTool(ctx, query)
		result := mcp.NewToolResultText(out)
		result.IsError = strings.HasPrefix(out, services.ToolErrorPrefix)
		return result, nil
	})
}
