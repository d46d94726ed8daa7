// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/sql"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection fingerprints a user question as SQLi.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventQuestionRejected is logged when the model refuses a question as out of domain.
	EventQuestionRejected SecurityEventType = "question_rejected"
	// EventQueryExecution is logged for every executed model-generated statement.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID string            `json:"request_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a detected SQL injection pattern.
type SQLInjectionDetails struct {
	Source      string `json:"source"` // "prompt"
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// QueryExecutionDetails describes one execution of generated SQL.
type QueryExecutionDetails struct {
	SQL      string `json:"sql"`
	RowCount int    `json:"row_count"`
	Retry    bool   `json:"retry"`
	Error    string `json:"error,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) event(ctx context.Context, eventType SecurityEventType, severity string, details any) (SecurityEvent, string) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: logging.RequestIDFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
	// marshaling known types does not fail
	eventJSON, _ := json.Marshal(event)
	return event, string(eventJSON)
}

// InspectPrompt runs libinjection over a user question and logs a critical event when it
// fingerprints as SQL injection. The question is not blocked: the model stands between it
// and the store. Reports whether an event was logged.
func (a *SecurityAuditor) InspectPrompt(ctx context.Context, prompt string) bool {
	result := sql.CheckForInjection("prompt", prompt)
	if result == nil {
		return false
	}

	a.LogInjectionAttempt(ctx, SQLInjectionDetails{
		Source:      result.Source,
		Value:       logging.TruncateString(result.Value, logging.MaxQueryLogLength),
		Fingerprint: result.Fingerprint,
	})
	return true
}

// LogInjectionAttempt records a detected SQL injection pattern.
// This is logged at ERROR level with "critical" severity for immediate alerting.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, details SQLInjectionDetails) {
	event, eventJSON := a.event(ctx, EventSQLInjectionAttempt, "critical", details)

	a.logger.Error("SQL injection pattern in question",
		zap.String("event_json", eventJSON),
		zap.String("request_id", event.RequestID),
		zap.String("source", details.Source),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("severity", event.Severity),
	)
}

// LogQuestionRejected records a guard-rail rejection at WARN level.
func (a *SecurityAuditor) LogQuestionRejected(ctx context.Context, prompt string) {
	event, eventJSON := a.event(ctx, EventQuestionRejected, "warning", map[string]string{
		"prompt": logging.TruncateString(prompt, logging.MaxQueryLogLength),
	})

	a.logger.Warn("Question rejected as out of domain",
		zap.String("event_json", eventJSON),
		zap.String("request_id", event.RequestID),
		zap.String("severity", event.Severity),
	)
}

// LogQueryExecution records one execution of model-generated SQL.
// Failed executions are logged at WARN, successful ones at INFO.
func (a *SecurityAuditor) LogQueryExecution(ctx context.Context, details QueryExecutionDetails) {
	details.SQL = logging.SanitizeQuery(details.SQL)

	severity := "info"
	if details.Error != "" {
		severity = "warning"
	}
	event, eventJSON := a.event(ctx, EventQueryExecution, severity, details)

	fields := []zap.Field{
		zap.String("event_json", eventJSON),
		zap.String("request_id", event.RequestID),
		zap.Int("row_count", details.RowCount),
		zap.Bool("retry", details.Retry),
		zap.String("severity", severity),
	}
	if details.Error != "" {
		a.logger.Warn("Generated query failed", fields...)
		return
	}
	a.logger.Info("Generated query executed", fields...)
}
