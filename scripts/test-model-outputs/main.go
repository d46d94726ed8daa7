// test-model-outputs checks SQL generation across chat model endpoints.
// It sends the same sales questions to each model and verifies the SQL extraction works.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/prompts"
	"github.com/asistentebi/bi-engine/pkg/sql"
)

// Model defines a model endpoint to test
type Model struct {
	Name     string
	Provider string
	Endpoint string
	Model    string
	APIKey   string
}

// Case is one question and the extraction kind a well-behaved model should produce.
type Case struct {
	Question string
	Want     sql.ExtractionKind
}

var defaultCases = []Case{
	{Question: "¿Cuáles son los 5 mejores vendedores por total vendido?", Want: sql.SQLFound},
	{Question: "¿Cómo evolucionaron las ventas mensuales en 2024?", Want: sql.SQLFound},
	{Question: "¿Qué porcentaje de las ventas corresponde a cada categoría?", Want: sql.SQLFound},
	{Question: "Escríbeme un poema sobre el mar", Want: sql.Rejected},
}

func defaultModels() []Model {
	return []Model{
		{
			Name:     "gemini-flash",
			Provider: "openai",
			Endpoint: llm.DefaultOpenAIBaseURL,
			Model:    "gemini-flash-latest",
			APIKey:   os.Getenv("GOOGLE_API_KEY"),
		},
		{
			Name:     "claude-haiku",
			Provider: "anthropic",
			Model:    "claude-3-5-haiku-latest",
			APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		},
	}
}

func main() {
	timeout := flag.Duration("timeout", 60*time.Second, "Timeout for each model call")
	dialect := flag.String("dialect", "postgres", "SQL dialect to request: postgres or mssql")
	tools := flag.Bool("tools", true, "Offer the query_database tool instead of asking for a fenced block")
	flag.Parse()

	logger, err := logging.NewLogger("local", "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("SQL Generation Test")
	fmt.Printf("Dialect: %s, tool calling: %v\n", *dialect, *tools)
	fmt.Println(strings.Repeat("=", 80))

	ctx := context.Background()
	schema := models.DefaultSchemaDescriptor()

	allPassed := true
	for _, model := range defaultModels() {
		if model.APIKey == "" {
			fmt.Printf("\nSKIP %s: no API key in environment\n", model.Name)
			continue
		}

		fmt.Printf("\n%s\n", strings.Repeat("-", 80))
		fmt.Printf("Testing: %s (%s)\n", model.Name, model.Model)
		fmt.Printf("%s\n", strings.Repeat("-", 80))

		client, err := llm.NewChatModel(&llm.Config{
			Provider: model.Provider,
			Endpoint: model.Endpoint,
			Model:    model.Model,
			APIKey:   model.APIKey,
		}, logger)
		if err != nil {
			fmt.Printf("✗ FAIL: create client: %v\n", err)
			allPassed = false
			continue
		}

		for _, tc := range defaultCases {
			gen := &prompts.GenerationContext{
				Dialect:      *dialect,
				Schema:       schema,
				UsableTables: schema.TableNames(),
				ToolCalling:  *tools,
				Question:     tc.Question,
			}
			result := testCase(ctx, client, gen, tc, *timeout, logger)
			printResult(tc, result)
			if !result.Success {
				allPassed = false
			}
		}
	}

	if allPassed {
		fmt.Println("\nAll models passed!")
		os.Exit(0)
	}
	fmt.Println("\nSome models failed.")
	os.Exit(1)
}

type TestResult struct {
	Success    bool
	Kind       sql.ExtractionKind
	SQL        string
	Error      string
	DurationMs int64
}

func testCase(ctx context.Context, client llm.ChatModel, gen *prompts.GenerationContext, tc Case, timeout time.Duration, logger *zap.Logger) TestResult {
	result := TestResult{}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var defs []llm.ToolDefinition
	if gen.ToolCalling {
		defs = append(defs, llm.QueryDatabaseToolDefinition())
	}

	completion, err := llm.BindTools(client, defs...).Invoke(ctx, gen.Messages())
	if err != nil {
		result.Error = logging.SanitizeError(err)
		return result
	}
	result.DurationMs = time.Since(start).Milliseconds()

	extraction := sql.Extract(completion.Text())
	if extraction.Kind != sql.Rejected {
		for _, call := range completion.ToolInvocations() {
			if call.Name != llm.QueryDatabaseTool {
				continue
			}
			query, err := call.StringArgument(llm.QueryArgument)
			if err != nil {
				logger.Warn("Malformed tool call", zap.Error(err))
				continue
			}
			extraction = sql.ExtractToolQuery(query)
		}
	}

	result.Kind = extraction.Kind
	result.SQL = extraction.SQL
	result.Success = extraction.Kind == tc.Want
	if !result.Success {
		result.Error = fmt.Sprintf("expected %s, got %s", tc.Want, extraction.Kind)
	}
	return result
}

func printResult(tc Case, result TestResult) {
	status := "✓ PASS"
	if !result.Success {
		status = "✗ FAIL"
	}
	fmt.Printf("%s %q (%dms)\n", status, tc.Question, result.DurationMs)
	if result.SQL != "" {
		fmt.Printf("    %s\n", logging.TruncateString(strings.Join(strings.Fields(result.SQL), " "), 120))
	}
	if result.Error != "" {
		fmt.Printf("    Error: %s\n", result.Error)
	}
}
