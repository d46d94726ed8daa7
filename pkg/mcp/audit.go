package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/logging"
)

// ToolCallEvent is one audited MCP tool call.
type ToolCallEvent struct {
	Tool          string
	RequestID     string
	Params        map[string]any
	WasSuccessful bool
	Duration      time.Duration
	ResultSummary map[string]any
	ErrorMessage  string
}

// AuditLogger records MCP tool calls through mcp-go hooks.
type AuditLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by JSON-RPC id.
	startTimes sync.Map

	// onEvent is called with every recorded event. Used by tests.
	onEvent func(ToolCallEvent)
}

// NewAuditLogger creates an AuditLogger that records MCP events.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.Named("mcp-audit"),
	}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	startTime, _ := a.loadAndDeleteStart(id)

	event := a.buildEvent(ctx, req)
	event.WasSuccessful = result == nil || !result.IsError
	event.Duration = time.Since(startTime)
	event.ResultSummary = summarizeResult(result)

	a.record(event)
}

func (a *AuditLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}

	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	startTime, _ := a.loadAndDeleteStart(id)

	event := a.buildEvent(ctx, req)
	event.WasSuccessful = false
	event.Duration = time.Since(startTime)
	event.ErrorMessage = logging.SanitizeError(err)

	a.record(event)
}

func (a *AuditLogger) loadAndDeleteStart(id any) (time.Time, bool) {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time), true
	}
	return time.Now(), false
}

func (a *AuditLogger) buildEvent(ctx context.Context, req *mcplib.CallToolRequest) ToolCallEvent {
	return ToolCallEvent{
		Tool:      req.Params.Name,
		RequestID: logging.RequestIDFromContext(ctx),
		Params:    sanitizeParams(req.Params.Arguments),
	}
}

func (a *AuditLogger) record(event ToolCallEvent) {
	fields := []zap.Field{
		zap.String("tool", event.Tool),
		zap.String("request_id", event.RequestID),
		zap.Any("params", event.Params),
		zap.Duration("duration", event.Duration),
		zap.Any("result", event.ResultSummary),
	}

	if event.WasSuccessful {
		a.logger.Info("MCP tool call", fields...)
	} else {
		a.logger.Warn("MCP tool call failed", append(fields, zap.String("error", event.ErrorMessage))...)
	}

	if a.onEvent != nil {
		a.onEvent(event)
	}
}

// maxParamSize is the maximum size of a string parameter kept in audit logs.
const maxParamSize = 10240 // 10KB

// sqlStringLiteralPattern matches SQL string literals: 'value', 'it''s escaped', etc.
var sqlStringLiteralPattern = regexp.MustCompile(`'(?:[^']*(?:'')?)*[^']*'`)

var sensitiveKeyPattern = regexp.MustCompile(`(?i)password|secret|token|api_?key|credential`)

// sanitizeParams applies: truncation, SQL string literal redaction, sensitive value hashing.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if sensitiveKeyPattern.MatchString(key) {
		return hashSensitiveValue(value)
	}

	switch val := value.(type) {
	case string:
		if len(val) > maxParamSize {
			val = val[:maxParamSize] + "...[truncated]"
		}
		if isSQLParam(key) {
			val = redactSQLStringLiterals(val)
		}
		return val
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

// isSQLParam returns true if a parameter key likely contains SQL.
func isSQLParam(key string) bool {
	lower := strings.ToLower(key)
	return lower == "sql" || lower == "query" || strings.HasSuffix(lower, "_sql") || strings.HasSuffix(lower, "_query")
}

// redactSQLStringLiterals replaces string literal values in SQL with '***',
// preserving the query structure while hiding filter values.
func redactSQLStringLiterals(sql string) string {
	return sqlStringLiteralPattern.ReplaceAllString(sql, "'***'")
}

// hashSensitiveValue returns a SHA-256 hash prefix so entries can be correlated
// without storing the value.
func hashSensitiveValue(value any) string {
	str, ok := value.(string)
	if !ok {
		str = fmt.Sprintf("%v", value)
	}
	hash := sha256.Sum256([]byte(str))
	return "sha256:" + hex.EncodeToString(hash[:8])
}

// summarizeResult creates a compact summary of the tool result.
func summarizeResult(result *mcplib.CallToolResult) map[string]any {
	if result == nil {
		return nil
	}

	summary := map[string]any{
		"is_error": result.IsError,
	}

	if len(result.Content) > 0 {
		summary["content_count"] = len(result.Content)
		for _, c := range result.Content {
			if tc, ok := c.(mcplib.TextContent); ok {
				summary["preview"] = logging.TruncateString(tc.Text, logging.MaxQueryLogLength)
				break
			}
		}
	}

	return summary
}
