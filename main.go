package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/asistentebi/bi-engine/pkg/adapters/datasource"
	_ "github.com/asistentebi/bi-engine/pkg/adapters/datasource/mssql"
	_ "github.com/asistentebi/bi-engine/pkg/adapters/datasource/postgres"
	"github.com/asistentebi/bi-engine/pkg/apperrors"
	"github.com/asistentebi/bi-engine/pkg/audit"
	"github.com/asistentebi/bi-engine/pkg/config"
	"github.com/asistentebi/bi-engine/pkg/database"
	"github.com/asistentebi/bi-engine/pkg/handlers"
	"github.com/asistentebi/bi-engine/pkg/llm"
	"github.com/asistentebi/bi-engine/pkg/logging"
	"github.com/asistentebi/bi-engine/pkg/mcp"
	"github.com/asistentebi/bi-engine/pkg/metrics"
	"github.com/asistentebi/bi-engine/pkg/middleware"
	"github.com/asistentebi/bi-engine/pkg/models"
	"github.com/asistentebi/bi-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("mode", cfg.Assistant.Mode),
		zap.String("db_type", cfg.Database.Type),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	schema := models.DefaultSchemaDescriptor()
	if cfg.Assistant.SchemaPath != "" {
		schema, err = models.LoadSchemaDescriptor(cfg.Assistant.SchemaPath)
		if err != nil {
			logger.Fatal("Failed to load schema descriptor", zap.String("path", cfg.Assistant.SchemaPath), zap.Error(err))
		}
	}

	// Clients are created on the first request that needs them. A failure there is
	// reported to that request and retried on the next one.
	clients := services.NewServiceContext(
		func(context.Context) (llm.ChatModel, error) { return newChatModel(cfg, logger) },
		func(ctx context.Context) (datasource.Store, error) { return newStore(ctx, cfg, logger) },
	)
	defer func() {
		if err := clients.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}()

	auditor := audit.NewSecurityAuditor(logger)
	executor := services.NewQueryExecutor(clients, auditor, logger)
	askService := services.NewAskService(
		clients,
		executor,
		services.NewFileKnowledgeProvider(cfg.Assistant.KnowledgePath, logger),
		services.NewChartAdvisor(cfg.Chart),
		auditor,
		services.AskConfig{Mode: cfg.Assistant.Mode, Schema: schema},
		logger,
	)

	mcpServer := mcp.NewServer(cfg.AppName, cfg.Version, mcp.NewAuditLogger(logger), logger)
	mcpServer.RegisterTools(&mcp.Deps{
		Version:   cfg.Version,
		Ask:       askService,
		Executor:  executor,
		Schema:    schema,
		Readiness: clients,

		ExposeQueryTool: cfg.MCP.ExposeQueryTool,
	})

	mux := http.NewServeMux()

	handlers.NewRootHandler(logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(cfg, clients, logger).RegisterRoutes(mux)
	handlers.NewAskHandler(askService, logger).RegisterRoutes(mux)
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	// Metrics sits next to the mux so it sees the matched route pattern.
	handler := middleware.Chain(mux,
		middleware.CORS(cfg.CORSOrigins),
		middleware.RequestID,
		middleware.RequestLogger(logger),
		middleware.Timeout(cfg.RequestTimeout),
		metrics.Middleware,
	)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server", zap.String("addr", addr), zap.String("app", cfg.AppName))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
		_ = server.Close()
		os.Exit(1)
	}
}

func newChatModel(cfg *config.Config, logger *zap.Logger) (llm.ChatModel, error) {
	// The default endpoint is hosted and always needs a key; a custom endpoint may be local.
	if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
		return nil, fmt.Errorf("llm api key: %w", apperrors.ErrNotConfigured)
	}

	return llm.NewChatModel(&llm.Config{
		Provider:    cfg.LLM.Provider,
		Endpoint:    cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		CircuitBreaker: llm.CircuitBreakerConfig{
			Threshold:  cfg.LLM.CircuitBreakerThreshold,
			ResetAfter: cfg.LLM.CircuitBreakerReset,
		},
	}, logger)
}

func newStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (datasource.Store, error) {
	connStr := cfg.Database.ConnectionString()

	if cfg.Database.AutoMigrate && cfg.Database.Type == "postgres" {
		if err := database.Migrate(connStr, cfg.Database.MigrationsPath, logger); err != nil {
			return nil, err
		}
	}

	store, err := datasource.NewStore(ctx, &datasource.Config{
		Type:             cfg.Database.Type,
		ConnectionString: connStr,
		MaxConnections:   cfg.Database.MaxConnections,
		MaxRows:          cfg.Database.MaxRows,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("ping %s store: %s", cfg.Database.Type, logging.SanitizeError(err))
	}

	return store, nil
}
