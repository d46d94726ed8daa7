package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asistentebi/bi-engine/pkg/models"
)

// RegisterSchemaTool exposes the schema descriptor the model is prompted with, so MCP
// clients can write their own query_database calls.
func RegisterSchemaTool(s *server.MCPServer, schema *models.SchemaDescriptor) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription(
			"Devuelve el esquema de la base de datos de ventas: una línea por tabla con sus columnas, "+
				"claves primarias (PK) y foráneas (FK -> tabla).",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(strings.TrimSpace(schema.Render())), nil
	})
}
