package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/asistentebi/bi-engine/pkg/apperrors"
	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/services"
)

// RegisterAskTool exposes the full question pipeline: the result is the same JSON
// envelope POST /ask returns.
func RegisterAskTool(s *server.MCPServer, askService services.AskService) {
	tool := mcp.NewTool(
		"ask",
		mcp.WithDescription(
			"Responde una pregunta en lenguaje natural sobre los datos de ventas. "+
				"Devuelve metadata (gráfico sugerido, SQL ejecutado), las filas y una respuesta breve.",
		),
		mcp.WithString(
			"prompt",
			mcp.Required(),
			mcp.Description("La pregunta, por ejemplo: ¿Quiénes son los 5 mejores vendedores?"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		resp, err := askService.Ask(ctx, prompt)
		if err != nil {
			var initErr *services.InitError
			switch {
			case errors.Is(err, apperrors.ErrInvalidRequest):
				return NewErrorResult("invalid_parameters", err.Error()), nil
			case llm.IsQuotaError(err):
				return NewErrorResult("quota_exceeded", services.QuotaExceededMessage), nil
			case errors.As(err, &initErr):
				return NewErrorResult("initialization_error", logging.SanitizeError(initErr)), nil
			}
			return nil, fmt.Errorf("ask failed: %w", err)
		}

		body, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ask response: %w", err)
		}
		return mcp.NewToolResultText(string(body)), nil
	})
}
