package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// SystemMessage, UserMessage and AssistantMessage build messages of the matching role.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

func AssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Output is one element of a model completion: either a TextAnswer or a ToolInvocation.
// Provider responses are decoded into this closed set once, inside the client.
type Output interface {
	isOutput()
}

// TextAnswer is free text produced by the model.
type TextAnswer struct {
	Text string
}

// ToolInvocation is a request by the model to call a tool.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

func (TextAnswer) isOutput()     {}
func (ToolInvocation) isOutput() {}

// StringArgument returns a string argument of the invocation.
func (t ToolInvocation) StringArgument(name string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(t.Arguments), &args); err != nil {
		return "", fmt.Errorf("tool %s: invalid arguments: %w", t.Name, err)
	}

	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("tool %s: missing argument %q", t.Name, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("tool %s: argument %q must be a string, got %T", t.Name, name, v)
	}
	return s, nil
}

// Completion is a decoded model response.
type Completion struct {
	Outputs          []Output
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Text concatenates all text outputs.
func (c *Completion) Text() string {
	if c == nil {
		return ""
	}

	var parts []string
	for _, o := range c.Outputs {
		if t, ok := o.(TextAnswer); ok && t.Text != "" {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolInvocations returns the tool invocations in the order the model emitted them.
func (c *Completion) ToolInvocations() []ToolInvocation {
	if c == nil {
		return nil
	}

	var calls []ToolInvocation
	for _, o := range c.Outputs {
		if t, ok := o.(ToolInvocation); ok {
			calls = append(calls, t)
		}
	}
	return calls
}

func jsonObject(v map[string]any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
