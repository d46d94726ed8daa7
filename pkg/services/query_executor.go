package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/audit"
	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/metrics"
)

// ToolErrorPrefix starts every failure message returned to a model through the tool path.
const ToolErrorPrefix = "Error ejecutando SQL: "

// QueryExecutor runs generated SQL. The statement is executed as written: there is no
// validation or rewriting, and the only guard is the store's row cap.
type QueryExecutor struct {
	stores  StoreSource
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewQueryExecutor creates an executor over the process-wide store.
func NewQueryExecutor(stores StoreSource, auditor *audit.SecurityAuditor, logger *zap.Logger) *QueryExecutor {
	return &QueryExecutor{
		stores:  stores,
		auditor: auditor,
		logger:  logger.Named("query_executor"),
	}
}

// Execute runs sqlQuery. A store failure is returned as *SQLExecutionError so the caller
// can feed it back to the model; a store that cannot start is returned as *InitError.
func (e *QueryExecutor) Execute(ctx context.Context, sqlQuery string) (*datasource.QueryResult, error) {
	store, err := e.stores.Store(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Executing generated SQL", zap.String("sql", logging.SanitizeQuery(sqlQuery)))

	start := time.Now()
	result, err := store.Execute(ctx, sqlQuery)
	metrics.ObserveSQLExecution(time.Since(start), err)
	if err != nil {
		e.logger.Warn("Generated SQL failed",
			zap.String("sql", logging.SanitizeQuery(sqlQuery)),
			zap.String("error", logging.SanitizeError(err)),
			zap.Duration("elapsed", time.Since(start)))
		return nil, &SQLExecutionError{SQL: sqlQuery, Err: err}
	}

	e.logger.Debug("Generated SQL executed",
		zap.Int("row_count", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// ExecuteTool is Execute for model-visible tool calls: it never fails. Rows come back
// as a JSON array of shaped records; any failure as "Error ejecutando SQL: <message>".
func (e *QueryExecutor) ExecuteTool(ctx context.Context, sqlQuery string) string {
	result, err := e.Execute(ctx, sqlQuery)
	e.audit(ctx, sqlQuery, result, err, false)
	if err != nil {
		var sqlErr *SQLExecutionError
		if errors.As(err, &sqlErr) {
			return ToolErrorPrefix + sqlErr.Error()
		}
		return ToolErrorPrefix + err.Error()
	}

	body, err := json.Marshal(ShapeResult(result))
	if err != nil {
		return fmt.Sprintf("%s%v", ToolErrorPrefix, err)
	}
	return string(body)
}

func (e *QueryExecutor) audit(ctx context.Context, sqlQuery string, result *datasource.QueryResult, err error, retry bool) {
	details := audit.QueryExecutionDetails{SQL: sqlQuery, Retry: retry}
	if err != nil {
		details.Error = logging.SanitizeError(err)
	} else if result != nil {
		details.RowCount = result.RowCount
	}
	e.auditor.LogQueryExecution(ctx, details)
}
