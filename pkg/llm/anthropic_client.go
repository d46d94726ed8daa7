package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client      *anthropic.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

var _ ChatModel = (*AnthropicClient)(nil)

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for anthropic")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(cfg.APIKey, opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      logger.Named("llm"),
	}, nil
}

// Invoke implements ChatModel. System messages are folded into the request's system prompt.
func (c *AnthropicClient) Invoke(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error) {
	system, converted := buildAnthropicMessages(messages)

	temperature := c.temperature
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		System:      system,
		Messages:    converted,
		Temperature: &temperature,
	}
	for _, def := range tools {
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		})
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("message_count", len(converted)),
		zap.Int("tool_count", len(tools)))

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		classified := ClassifyError(err)
		classified.Model = c.model
		return nil, classified
	}

	var text []string
	var native []ToolInvocation
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			if block.Text != nil {
				text = append(text, *block.Text)
			}
		case "tool_use":
			if block.MessageContentToolUse != nil {
				native = append(native, ToolInvocation{
					ID:        block.MessageContentToolUse.ID,
					Name:      block.MessageContentToolUse.Name,
					Arguments: string(block.MessageContentToolUse.Input),
				})
			}
		}
	}

	completion := &Completion{
		Outputs:          decodeText(strings.Join(text, "\n"), native),
		Model:            c.model,
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Int("tool_calls", len(native)),
		zap.Duration("elapsed", time.Since(start)))

	return completion, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

func buildAnthropicMessages(messages []Message) (string, []anthropic.Message) {
	var system []string
	var result []anthropic.Message

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			result = append(result, anthropicText(anthropic.RoleAssistant, msg.Content))
		default:
			result = append(result, anthropicText(anthropic.RoleUser, msg.Content))
		}
	}

	return strings.Join(system, "\n\n"), result
}

func anthropicText(role anthropic.ChatRole, content string) anthropic.Message {
	return anthropic.Message{
		Role: role,
		Content: []anthropic.MessageContent{
			{Type: "text", Text: &content},
		},
	}
}
