package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	"github.com/asistentebi/bi-engine/pkg/apperrors"
	"github.com/asistentebi/bi-engine/pkg/audit"
	"github.com/asistentebi/bi-engine/pkg/config"
	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/metrics"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/prompts"
	"github.com/asistentebi/bi-engine/pkg/sql"
)

// RejectedAnswer is returned as the answer when the model refuses a question.
const RejectedAnswer = "No es una consulta válida. Por favor, haz una pregunta relacionada con los datos de ventas."

// ErrorField is the key of the single record returned when a statement fails twice.
const ErrorField = "error"

// AskService turns a natural-language question into an answered envelope.
type AskService interface {
	// Ask always returns an envelope unless a client cannot be initialized (*InitError)
	// or the model call itself fails (*llm.Error). SQL failures end up inside the envelope.
	Ask(ctx context.Context, prompt string) (*models.AskResponse, error)
}

// ModelSource hands out the process-wide chat model.
type ModelSource interface {
	Model(ctx context.Context) (llm.ChatModel, error)
}

// Clients is the pair of process-wide clients a request needs.
type Clients interface {
	ModelSource
	StoreSource
}

var _ Clients = (*ServiceContext)(nil)

// AskConfig holds the orchestrator's settings.
type AskConfig struct {
	Mode   string // config.ModeTools or config.ModeSinglePass
	Schema *models.SchemaDescriptor
}

type askService struct {
	clients   Clients
	executor  *QueryExecutor
	knowledge KnowledgeProvider
	advisor   *ChartAdvisor
	auditor   *audit.SecurityAuditor
	cfg       AskConfig
	logger    *zap.Logger
}

var _ AskService = (*askService)(nil)

// NewAskService creates the orchestrator.
func NewAskService(
	clients Clients,
	executor *QueryExecutor,
	knowledge KnowledgeProvider,
	advisor *ChartAdvisor,
	auditor *audit.SecurityAuditor,
	cfg AskConfig,
	logger *zap.Logger,
) AskService {
	if cfg.Schema == nil {
		cfg.Schema = models.DefaultSchemaDescriptor()
	}
	if cfg.Mode == "" {
		cfg.Mode = config.ModeTools
	}
	return &askService{
		clients:   clients,
		executor:  executor,
		knowledge: knowledge,
		advisor:   advisor,
		auditor:   auditor,
		cfg:       cfg,
		logger:    logger.Named("ask"),
	}
}

// askState tracks one request through the pipeline. Terminal states always produce an envelope.
type askState int

const (
	stateInit askState = iota
	statePromptBuilt
	stateModelInvoked
	stateSQLExtracted
	stateExecuted
	stateExecutionFailed
	stateRetryInvoked
	stateRetryExecuted
	stateRetryFailed
	stateNoSQLProduced
	stateRejected
)

func (s askState) String() string {
	switch s {
	case stateInit:
		return "init"
	case statePromptBuilt:
		return "prompt_built"
	case stateModelInvoked:
		return "model_invoked"
	case stateSQLExtracted:
		return "sql_extracted"
	case stateExecuted:
		return "executed"
	case stateExecutionFailed:
		return "execution_failed"
	case stateRetryInvoked:
		return "retry_invoked"
	case stateRetryExecuted:
		return "retry_executed"
	case stateRetryFailed:
		return "retry_failed"
	case stateNoSQLProduced:
		return "no_sql_produced"
	case stateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("askState(%d)", int(s))
	}
}

// askRun is the per-request state.
type askRun struct {
	prompt string
	state  askState
	logger *zap.Logger

	bound    *llm.BoundModel
	messages []llm.Message

	// text is every piece of model text seen so far, fed to the chart advisor.
	text []string
}

func (r *askRun) transition(next askState, fields ...zap.Field) {
	r.logger.Debug("Ask state transition",
		append([]zap.Field{
			zap.String("from", r.state.String()),
			zap.String("to", next.String()),
		}, fields...)...)
	r.state = next
}

// generation is what one model turn produced, after extraction.
type generation struct {
	answer   string
	rejected bool
	queries  []string
}

func (s *askService) Ask(ctx context.Context, prompt string) (*models.AskResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", apperrors.ErrInvalidRequest)
	}

	run := &askRun{
		prompt: prompt,
		state:  stateInit,
		logger: s.logger.With(zap.String("request_id", logging.RequestIDFromContext(ctx))),
	}

	model, err := s.clients.Model(ctx)
	if err != nil {
		return nil, err
	}
	store, err := s.clients.Store(ctx)
	if err != nil {
		return nil, err
	}

	s.auditor.InspectPrompt(ctx, prompt)

	genCtx := &prompts.GenerationContext{
		Dialect:      store.Dialect(),
		Schema:       s.cfg.Schema,
		UsableTables: s.usableTables(ctx, store),
		Knowledge:    s.readKnowledge(ctx),
		ToolCalling:  s.cfg.Mode == config.ModeTools,
		Question:     prompt,
	}
	run.messages = genCtx.Messages()
	if genCtx.ToolCalling {
		run.bound = llm.BindTools(model, llm.QueryDatabaseToolDefinition())
	} else {
		run.bound = llm.BindTools(model)
	}
	run.transition(statePromptBuilt, zap.String("mode", s.cfg.Mode), zap.String("dialect", genCtx.Dialect))

	first, err := s.invoke(ctx, run, run.messages)
	if err != nil {
		return nil, err
	}
	run.transition(stateModelInvoked)

	if first.rejected {
		return s.rejected(ctx, run), nil
	}
	if len(first.queries) == 0 {
		run.transition(stateNoSQLProduced)
		metrics.ObserveAskOutcome("answer_only")
		return s.envelope(run, first.answer, nil, "", false), nil
	}
	run.transition(stateSQLExtracted, zap.Int("statements", len(first.queries)))

	result, sqlQuery, execErr := s.executeAll(ctx, first.queries, false)
	if execErr == nil {
		run.transition(stateExecuted, zap.Int("row_count", result.RowCount))
		metrics.ObserveAskOutcome("executed")
		return s.envelope(run, first.answer, result, sqlQuery, false), nil
	}

	var sqlErr *SQLExecutionError
	if !errors.As(execErr, &sqlErr) {
		return nil, execErr
	}
	run.transition(stateExecutionFailed, zap.String("error", logging.SanitizeError(sqlErr)))

	return s.retry(ctx, run, first, sqlErr)
}

// retry runs the single correction turn after a failed statement.
func (s *askService) retry(ctx context.Context, run *askRun, first *generation, failed *SQLExecutionError) (*models.AskResponse, error) {
	metrics.IncSQLRetry()

	messages := prompts.RetryMessages(run.messages, first.answer, failed.SQL, failed.Error())
	second, err := s.invoke(ctx, run, messages)
	if err != nil {
		// Quota keeps its own error so callers can tell the user to try later.
		if llm.IsQuotaError(err) {
			return nil, err
		}
		run.transition(stateRetryFailed, zap.String("reason", "model error"))
		return s.failed(run, first.answer, failed), nil
	}
	run.transition(stateRetryInvoked, zap.Int("statements", len(second.queries)))

	if second.rejected || len(second.queries) == 0 {
		run.transition(stateRetryFailed, zap.String("reason", "no corrected sql"))
		return s.failed(run, first.answer, failed), nil
	}

	result, sqlQuery, execErr := s.executeAll(ctx, second.queries, true)
	if execErr != nil {
		var sqlErr *SQLExecutionError
		if !errors.As(execErr, &sqlErr) {
			return nil, execErr
		}
		run.transition(stateRetryFailed, zap.String("error", logging.SanitizeError(sqlErr)))
		return s.failed(run, first.answer, failed), nil
	}

	run.transition(stateRetryExecuted, zap.Int("row_count", result.RowCount))
	metrics.ObserveAskOutcome("retry_executed")

	answer := second.answer
	if answer == "" {
		answer = first.answer
	}
	return s.envelope(run, answer, result, sqlQuery, true), nil
}

// invoke calls the bound model and extracts statements from the completion. Tool
// invocations take precedence; without them the text is scanned for a fenced block.
func (s *askService) invoke(ctx context.Context, run *askRun, messages []llm.Message) (*generation, error) {
	start := time.Now()
	completion, err := run.bound.Invoke(ctx, messages)
	if err != nil {
		metrics.ObserveModelCall(time.Since(start), string(llm.GetErrorType(err)))
		run.logger.Error("Model invocation failed",
			zap.String("state", run.state.String()),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return nil, err
	}
	metrics.ObserveModelCall(time.Since(start), "")

	text := completion.Text()
	run.text = append(run.text, text)

	extracted := sql.Extract(text)
	gen := &generation{answer: extracted.Answer}
	if extracted.Kind == sql.Rejected {
		gen.rejected = true
		return gen, nil
	}

	for _, call := range completion.ToolInvocations() {
		if call.Name != llm.QueryDatabaseTool {
			run.logger.Warn("Ignoring unknown tool invocation", zap.String("tool", call.Name))
			continue
		}
		query, err := call.StringArgument(llm.QueryArgument)
		if err != nil {
			run.logger.Warn("Ignoring malformed tool invocation", zap.Error(err))
			continue
		}
		switch e := sql.ExtractToolQuery(query); e.Kind {
		case sql.Rejected:
			gen.rejected = true
			return gen, nil
		case sql.SQLFound:
			gen.queries = append(gen.queries, e.SQL)
		}
	}

	if len(gen.queries) == 0 && extracted.Kind == sql.SQLFound {
		gen.queries = append(gen.queries, extracted.SQL)
	}
	return gen, nil
}

// executeAll runs every statement of one turn in order. The last successful result wins;
// the first failure is returned only when no statement succeeded.
func (s *askService) executeAll(ctx context.Context, queries []string, retry bool) (*datasource.QueryResult, string, error) {
	var (
		last      *datasource.QueryResult
		lastSQL   string
		firstFail error
	)
	for _, q := range queries {
		result, err := s.executor.Execute(ctx, q)
		s.executor.audit(ctx, q, result, err, retry)
		if err != nil {
			var initErr *InitError
			if errors.As(err, &initErr) {
				return nil, "", err
			}
			if firstFail == nil {
				firstFail = err
			}
			continue
		}
		last, lastSQL = result, q
	}
	if last == nil {
		return nil, "", firstFail
	}
	return last, lastSQL, nil
}

func (s *askService) rejected(ctx context.Context, run *askRun) *models.AskResponse {
	run.transition(stateRejected)
	metrics.ObserveAskOutcome("rejected")
	s.auditor.LogQuestionRejected(ctx, run.prompt)

	valid := false
	return &models.AskResponse{
		Metadata: models.AskMetadata{
			Question:       run.prompt,
			SuggestedChart: models.ChartTable,
			ValidQuery:     &valid,
		},
		Data:   []models.Row{},
		Answer: RejectedAnswer,
		Status: models.StatusSuccess,
	}
}

// failed builds the error envelope; it carries the first failure's message.
func (s *askService) failed(run *askRun, answer string, original *SQLExecutionError) *models.AskResponse {
	metrics.ObserveAskOutcome("retry_failed")
	valid := true
	return &models.AskResponse{
		Metadata: models.AskMetadata{
			Question:       run.prompt,
			SuggestedChart: models.ChartTable,
			ValidQuery:     &valid,
			SQL:            original.SQL,
			Retried:        true,
		},
		Data:   []models.Row{{ErrorField: original.Error()}},
		Answer: answer,
		Status: models.StatusError,
	}
}

func (s *askService) envelope(run *askRun, answer string, result *datasource.QueryResult, sqlQuery string, retried bool) *models.AskResponse {
	rows := ShapeResult(result)

	var columns []string
	if result != nil {
		for _, c := range result.Columns {
			columns = append(columns, c.Name)
		}
	}

	valid := true
	return &models.AskResponse{
		Metadata: models.AskMetadata{
			Question:       run.prompt,
			SuggestedChart: s.advisor.Suggest(run.prompt, strings.Join(run.text, "\n"), rows),
			ValidQuery:     &valid,
			SQL:            sqlQuery,
			Columns:        columns,
			Retried:        retried,
		},
		Data:   rows,
		Answer: answer,
		Status: models.StatusSuccess,
	}
}

// usableTables lists the described tables the store can see. Any failure falls back to
// the descriptor's own list.
func (s *askService) usableTables(ctx context.Context, store datasource.Store) []string {
	described := s.cfg.Schema.TableNames()

	tables, err := store.ListUsableTables(ctx)
	if err != nil {
		s.logger.Warn("Failed to list usable tables, using schema descriptor",
			zap.String("error", logging.SanitizeError(err)))
		return described
	}

	var usable []string
	for _, t := range tables {
		if slices.Contains(described, strings.ToLower(t)) {
			usable = append(usable, strings.ToLower(t))
		}
	}
	if len(usable) == 0 {
		return described
	}
	return usable
}

func (s *askService) readKnowledge(ctx context.Context) string {
	if s.knowledge == nil {
		return ""
	}
	doc, ok, err := s.knowledge.ReadOptionalDocument(ctx)
	if err != nil {
		s.logger.Warn("Failed to read knowledge document", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return doc
}
