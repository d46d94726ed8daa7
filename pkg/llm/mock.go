package llm

import (
	"context"
	"sync"
)

// MockChatModel is a configurable mock for testing model interactions.
// Set InvokeFunc to control behavior; every call's messages and tools are recorded.
type MockChatModel struct {
	// InvokeFunc is called when Invoke is invoked.
	// If nil, returns an empty completion and nil error.
	InvokeFunc func(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	mu       sync.Mutex
	calls    [][]Message
	toolSets [][]ToolDefinition
}

var _ ChatModel = (*MockChatModel)(nil)

// NewMockChatModel creates a new mock with sensible defaults.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{Model: "mock-model"}
}

// NewScriptedChatModel returns a mock that answers with the given completions in order.
// Calls beyond the script get an empty completion.
func NewScriptedChatModel(responses ...*Completion) *MockChatModel {
	m := NewMockChatModel()
	m.InvokeFunc = func(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error) {
		n := m.InvokeCalls() - 1
		if n < len(responses) {
			return responses[n], nil
		}
		return &Completion{}, nil
	}
	return m
}

// Invoke implements ChatModel.
func (m *MockChatModel) Invoke(ctx context.Context, messages []Message, tools []ToolDefinition) (*Completion, error) {
	m.mu.Lock()
	copied := make([]Message, len(messages))
	copy(copied, messages)
	m.calls = append(m.calls, copied)
	m.toolSets = append(m.toolSets, tools)
	fn := m.InvokeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, tools)
	}
	return &Completion{}, nil
}

// GetModel implements ChatModel.
func (m *MockChatModel) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// InvokeCalls returns the number of Invoke calls so far.
func (m *MockChatModel) InvokeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Call returns the messages sent on the i-th call.
func (m *MockChatModel) Call(i int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// ToolsOnCall returns the tools offered on the i-th call.
func (m *MockChatModel) ToolsOnCall(i int) []ToolDefinition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.toolSets[i]
}

// TextCompletion builds a completion holding a single text answer.
func TextCompletion(text string) *Completion {
	return &Completion{Outputs: []Output{TextAnswer{Text: text}}}
}

// ToolCompletion builds a completion holding optional text followed by one query_database call.
func ToolCompletion(text, query string) *Completion {
	var outputs []Output
	if text != "" {
		outputs = append(outputs, TextAnswer{Text: text})
	}
	args, _ := jsonObject(map[string]any{QueryArgument: query})
	outputs = append(outputs, ToolInvocation{ID: "call_1", Name: QueryDatabaseTool, Arguments: args})
	return &Completion{Outputs: outputs}
}
