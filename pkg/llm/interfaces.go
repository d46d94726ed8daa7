// Package llm provides chat model clients with tool calling for OpenAI-compatible and
// Anthropic endpoints.
package llm

import (
	"context"
)

// ChatModel is a chat completion endpoint.
// Use this interface for dependency injection to enable mocking in tests.
type ChatModel interface {
	// Invoke sends messages and returns the decoded completion. Tools may be nil.
	Invoke(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// BoundModel is a ChatModel with a fixed tool set.
type BoundModel struct {
	model ChatModel
	tools []ToolDefinition
}

// BindTools returns a view of model that always offers tools. With no tools the bound
// model behaves as a plain completion call.
func BindTools(model ChatModel, tools ...ToolDefinition) *BoundModel {
	return &BoundModel{model: model, tools: tools}
}

// Invoke calls the underlying model with the bound tools.
func (b *BoundModel) Invoke(ctx context.Context, messages []Message) (*Completion, error) {
	return b.model.Invoke(ctx, messages, b.tools)
}

// Tools returns the bound tool definitions.
func (b *BoundModel) Tools() []ToolDefinition {
	return b.tools
}

// GetModel returns the underlying model name.
func (b *BoundModel) GetModel() string {
	return b.model.GetModel()
}
