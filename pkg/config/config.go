package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the BI assistant.
// Configuration can come from a YAML file (CONFIG_PATH, default config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	AppName  string `yaml:"app_name" env:"APP_NAME" env-default:"AsistenteBi"`
	BindAddr string `yaml:"bind_addr" env:"APP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"APP_PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// RequestTimeout bounds an HTTP request end to end. Zero disables the limit.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"0s"`

	// CORSOrigins lists allowed origins. "*" allows any origin.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-default:"*"`

	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Assistant AssistantConfig `yaml:"assistant"`
	Chart     ChartConfig     `yaml:"chart"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// DatabaseConfig holds the connection settings for the queried store.
type DatabaseConfig struct {
	// URL is a full connection string. When set it takes precedence over the individual fields.
	URL            string `yaml:"-" env:"DATABASE_URL"` // Secret - may embed a password
	Type           string `yaml:"type" env:"DB_TYPE" env-default:"postgres"`
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"asistente_bi"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`

	// MaxRows stops reading a result set after this many rows. The SQL itself is never rewritten.
	MaxRows int `yaml:"max_rows" env:"DB_MAX_ROWS" env-default:"1000"`

	AutoMigrate    bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"false"`
	// MigrationsPath reads migrations from disk instead of the copies embedded in the binary.
	MigrationsPath string `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH" env-default:""`
}

// LLMConfig holds the language model endpoint settings.
type LLMConfig struct {
	// Provider selects the client implementation: "openai" (any OpenAI-compatible endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	// BaseURL overrides the provider endpoint. Empty means Gemini's OpenAI-compatible
	// endpoint for "openai" and the public API for "anthropic".
	BaseURL     string  `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model       string  `yaml:"model" env:"LLM_MODEL" env-default:"gemini-flash-latest"`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	Temperature float32 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`

	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold" env:"LLM_CIRCUIT_BREAKER_THRESHOLD" env-default:"5"`
	CircuitBreakerReset     time.Duration `yaml:"circuit_breaker_reset" env:"LLM_CIRCUIT_BREAKER_RESET" env-default:"30s"`
}

// AssistantConfig controls how questions are turned into SQL.
type AssistantConfig struct {
	// Mode is "tools" (model calls query_database) or "single_pass" (answer plus fenced SQL).
	Mode string `yaml:"mode" env:"ASSISTANT_MODE" env-default:"tools"`
	// SchemaPath optionally replaces the built-in schema descriptor with a YAML file.
	SchemaPath string `yaml:"schema_path" env:"ASSISTANT_SCHEMA_PATH" env-default:""`
	// KnowledgePath points at an optional reference document appended to the prompt.
	KnowledgePath string `yaml:"knowledge_path" env:"ASSISTANT_KNOWLEDGE_PATH" env-default:""`
}

// MCPConfig controls which tools the /mcp endpoint offers.
type MCPConfig struct {
	// ExposeQueryTool registers query_database, which runs caller-supplied SQL as is.
	// The endpoint has no authentication, so leave this off unless the network is trusted.
	ExposeQueryTool bool `yaml:"expose_query_tool" env:"MCP_EXPOSE_QUERY_TOOL" env-default:"false"`
}

// ChartConfig holds the keyword lists the chart advisor scans questions for.
// Keywords are matched as whole words after lowercasing and accent folding.
type ChartConfig struct {
	ProportionKeywords  []string `yaml:"proportion_keywords" env:"CHART_PROPORTION_KEYWORDS" env-default:"porcentaje,distribucion,proporcion,participacion"`
	TemporalKeywords    []string `yaml:"temporal_keywords" env:"CHART_TEMPORAL_KEYWORDS" env-default:"tiempo,evolucion,fecha,tendencia,mensual,diario,semanal,anual,historico"`
	ComparisonKeywords  []string `yaml:"comparison_keywords" env:"CHART_COMPARISON_KEYWORDS" env-default:"correlacion,relacion,versus,vs"`
	SuperlativeKeywords []string `yaml:"superlative_keywords" env:"CHART_SUPERLATIVE_KEYWORDS" env-default:"mejor,mejores,peor,peores,top,mayor,menor,mas,comparar,cuantos,total,categoria,por,region,producto,vendedor,estado"`
}

// DefaultChartConfig returns the keyword lists used when configuration does not set them.
// Keep in sync with the env-default tags above.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		ProportionKeywords:  []string{"porcentaje", "distribucion", "proporcion", "participacion"},
		TemporalKeywords:    []string{"tiempo", "evolucion", "fecha", "tendencia", "mensual", "diario", "semanal", "anual", "historico"},
		ComparisonKeywords:  []string{"correlacion", "relacion", "versus", "vs"},
		SuperlativeKeywords: []string{"mejor", "mejores", "peor", "peores", "top", "mayor", "menor", "mas", "comparar", "cuantos", "total", "categoria", "por", "region", "producto", "vendedor", "estado"},
	}
}

const (
	ModeTools      = "tools"
	ModeSinglePass = "single_pass"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Load reads configuration from the YAML file with environment variable overrides.
// A missing file is not an error; the environment alone is used.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// Deployments configured for Gemini set GOOGLE_API_KEY.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks enumerated fields and numeric bounds.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("database.type must be postgres or mssql, got %q", c.Database.Type)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("llm.provider must be openai or anthropic, got %q", c.LLM.Provider)
	}

	switch c.Assistant.Mode {
	case ModeTools, ModeSinglePass:
	default:
		return fmt.Errorf("assistant.mode must be tools or single_pass, got %q", c.Assistant.Mode)
	}

	if c.Database.MaxRows <= 0 {
		return fmt.Errorf("database.max_rows must be positive, got %d", c.Database.MaxRows)
	}
	if c.LLM.CircuitBreakerThreshold <= 0 {
		return fmt.Errorf("llm.circuit_breaker_threshold must be positive, got %d", c.LLM.CircuitBreakerThreshold)
	}

	return nil
}

// ConnectionString builds a DSN for the configured store type unless DATABASE_URL was given.
func (d *DatabaseConfig) ConnectionString() string {
	if d.URL != "" {
		return d.URL
	}

	u := &url.URL{
		User: url.UserPassword(d.User, d.Password),
		Host: fmt.Sprintf("%s:%d", d.Host, d.Port),
	}
	q := url.Values{}

	if d.Type == "mssql" {
		u.Scheme = "sqlserver"
		q.Set("database", d.Database)
	} else {
		u.Scheme = "postgres"
		u.Path = "/" + d.Database
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}
