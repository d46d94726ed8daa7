package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// <tool_call>{"name": "...", "arguments": {...}}</tool_call>, emitted by models
	// served without native tool calling.
	textToolCallPattern = regexp.MustCompile(`<tool_call>\s*(\{[\s\S]*?\})\s*</tool_call>`)
	thinkBlockPattern   = regexp.MustCompile(`<think>[\s\S]*?</think>`)
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
)

// parseTextToolCalls extracts tool calls embedded in text output.
// Calls whose JSON does not parse are skipped.
func parseTextToolCalls(content string) []ToolInvocation {
	var calls []ToolInvocation

	matches := textToolCallPattern.FindAllStringSubmatch(content, -1)
	for i, match := range matches {
		var call struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal([]byte(match[1]), &call); err != nil || call.Name == "" {
			continue
		}

		argsJSON, err := json.Marshal(call.Arguments)
		if err != nil {
			continue
		}

		calls = append(calls, ToolInvocation{
			ID:        fmt.Sprintf("text_tool_%d", i),
			Name:      call.Name,
			Arguments: string(argsJSON),
		})
	}

	return calls
}

// cleanModelOutput removes tool call markup and thinking blocks from model output.
func cleanModelOutput(content string) string {
	content = thinkBlockPattern.ReplaceAllString(content, "")
	content = textToolCallPattern.ReplaceAllString(content, "")
	content = multiNewlinePattern.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// decodeText turns plain response text into outputs, recognising text-embedded tool calls
// when the provider returned no native ones.
func decodeText(content string, native []ToolInvocation) []Output {
	var outputs []Output

	calls := native
	if len(calls) == 0 && content != "" {
		if parsed := parseTextToolCalls(content); len(parsed) > 0 {
			calls = parsed
			content = cleanModelOutput(content)
		}
	}

	if strings.TrimSpace(content) != "" {
		outputs = append(outputs, TextAnswer{Text: content})
	}
	for _, c := range calls {
		outputs = append(outputs, c)
	}
	return outputs
}
