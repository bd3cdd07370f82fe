package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"jan-server/services/claims-api/internal/domain/llm"
)

// streamAccumulator merges streaming deltas of the first choice into one message.
type streamAccumulator struct {
	role         string
	finishReason string
	content      strings.Builder
	toolCalls    map[string]*toolCallAccumulator
	toolOrder    []string
	seen         bool
}

func newStreamAccumulator() *streamAccumulator {
	return &streamAccumulator{
		role:      llm.RoleAssistant,
		toolCalls: make(map[string]*toolCallAccumulator),
	}
}

// Apply folds one delta in and returns the text it contributed.
func (a *streamAccumulator) Apply(delta *llm.ChatCompletionDelta) string {
	if delta == nil {
		return ""
	}
	var text strings.Builder
	for _, choice := range delta.Choices {
		if choice.Index != 0 {
			continue
		}
		a.seen = true
		if choice.Delta.Role != "" {
			a.role = choice.Delta.Role
		}
		if choice.Delta.Content != "" {
			a.content.WriteString(choice.Delta.Content)
			text.WriteString(choice.Delta.Content)
		}
		for pos, call := range choice.Delta.ToolCalls {
			a.addOrUpdateToolCall(pos, call)
		}
		if choice.FinishReason != "" {
			a.finishReason = choice.FinishReason
		}
	}
	return text.String()
}

// key prefers the stream index, since only the first fragment of a call carries its id.
func (a *streamAccumulator) key(pos int, call llm.ToolCall) string {
	if call.Index != nil {
		return fmt.Sprintf("idx:%d", *call.Index)
	}
	if call.ID != "" {
		return "id:" + call.ID
	}
	// No index and no id: continuation of the latest call.
	if len(a.toolOrder) > 0 {
		return a.toolOrder[len(a.toolOrder)-1]
	}
	return fmt.Sprintf("pos:%d", pos)
}

func (a *streamAccumulator) addOrUpdateToolCall(pos int, call llm.ToolCall) {
	key := a.key(pos, call)

	builder, ok := a.toolCalls[key]
	if !ok {
		builder = &toolCallAccumulator{}
		a.toolCalls[key] = builder
		a.toolOrder = append(a.toolOrder, key)
	}

	if call.ID != "" && builder.call.ID == "" {
		builder.call.ID = call.ID
	}
	if call.Type != "" {
		builder.call.Type = call.Type
	}
	if call.Function.Name != "" {
		builder.call.Function.Name = call.Function.Name
	}
	if len(call.Function.Arguments) > 0 {
		builder.args.Write(call.Function.Arguments)
	}
}

// Result returns the accumulated choice, or nil when the stream carried no choices.
func (a *streamAccumulator) Result() *llm.ChatCompletionChoice {
	if !a.seen {
		return nil
	}
	message := llm.ChatMessage{
		Role:    a.role,
		Content: a.content.String(),
	}
	if len(a.toolOrder) > 0 {
		message.ToolCalls = make([]llm.ToolCall, 0, len(a.toolOrder))
		for _, key := range a.toolOrder {
			builder := a.toolCalls[key]
			call := builder.call
			if call.ID == "" {
				call.ID = "call_" + uuid.NewString()
			}
			if call.Type == "" {
				call.Type = "function"
			}
			call.Function.Arguments = json.RawMessage(builder.args.String())
			message.ToolCalls = append(message.ToolCalls, call)
		}
	}

	return &llm.ChatCompletionChoice{
		Index:        0,
		Message:      message,
		FinishReason: a.finishReason,
	}
}

type toolCallAccumulator struct {
	call llm.ToolCall
	args strings.Builder
}
