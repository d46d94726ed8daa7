// Package mcp exposes the assistant over the Model Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/mcp/tools"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/services"
)

const instructions = "Asistente de BI sobre una base de datos de ventas. " +
	"Usa 'ask' para preguntas en lenguaje natural y 'get_schema' para ver las tablas disponibles."

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance. Tool calls are audited through audit's hooks
// when audit is non-nil; handler panics become tool errors.
func NewServer(name, version string, audit *AuditLogger, logger *zap.Logger) *Server {
	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	}
	if audit != nil {
		opts = append(opts, server.WithHooks(audit.Hooks()))
	}

	return &Server{
		mcp:    server.NewMCPServer(name, version, opts...),
		logger: logger,
	}
}

// Deps holds what the tools call into.
type Deps struct {
	Version   string
	Ask       services.AskService
	Executor  tools.ToolExecutor
	Schema    *models.SchemaDescriptor
	Readiness tools.ReadinessReporter

	// ExposeQueryTool registers query_database, which runs caller SQL unchecked.
	ExposeQueryTool bool
}

// RegisterTools adds the assistant tools. query_database is only added when
// deps.ExposeQueryTool is set.
func (s *Server) RegisterTools(deps *Deps) {
	registered := []string{"health", "get_schema", "ask"}
	tools.RegisterHealthTool(s.mcp, deps.Version, deps.Readiness)
	tools.RegisterSchemaTool(s.mcp, deps.Schema)
	tools.RegisterAskTool(s.mcp, deps.Ask)

	if deps.ExposeQueryTool {
		tools.RegisterQueryDatabaseTool(s.mcp, deps.Executor)
		registered = append(registered, "query_database")
		s.logger.Warn("MCP query_database tool is exposed; callers can run arbitrary SQL")
	}

	s.logger.Info("MCP tools registered", zap.Strings("tools", registered))
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
