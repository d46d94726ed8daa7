package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config holds configuration for creating a chat model client.
type Config struct {
	Provider    string  // "openai" or "anthropic"
	Endpoint    string  // Base URL; empty selects the provider default
	Model       string  // Model name, e.g. "gemini-flash-latest"
	APIKey      string  // Optional for local endpoints
	Temperature float32 // 0 for deterministic SQL
	MaxTokens   int     // 0 leaves the provider default

	CircuitBreaker CircuitBreakerConfig
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client      *openai.Client
	endpoint    string
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

var _ ChatModel = (*OpenAIClient)(nil)

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultOpenAIBaseURL
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(endpoint, "/")

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		endpoint:    endpoint,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.Named("llm"),
	}, nil
}

// Invoke implements ChatModel.
func (c *OpenAIClient) Invoke(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    buildOpenAIMessages(messages),
		Tools:       buildOpenAITools(tools),
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("message_count", len(messages)),
		zap.Int("tool_count", len(tools)))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		classified := ClassifyError(err)
		classified.Model = c.model
		return nil, classified
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ErrorTypeUnknown, "no choices in response", false, nil)
	}

	msg := resp.Choices[0].Message
	var native []ToolInvocation
	for _, tc := range msg.ToolCalls {
		native = append(native, ToolInvocation{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	completion := &Completion{
		Outputs:          decodeText(msg.Content, native),
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("tool_calls", len(completion.ToolInvocations())),
		zap.Duration("elapsed", time.Since(start)))

	return completion, nil
}

// GetModel returns the configured model name.
func (c *OpenAIClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *OpenAIClient) GetEndpoint() string {
	return c.endpoint
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result
}

func buildOpenAITools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}

	result := make([]openai.Tool, len(tools))
	for i, def := range tools {
		paramsJSON, _ := json.Marshal(def.Parameters)
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(paramsJSON),
			},
		}
	}
	return result
}
