package conversation

import (
	"strings"

	"jan-server/services/claims-api/internal/domain/llm"
)

// ToChatMessages flattens stored messages into model-facing chat messages.
// Assistant messages are split at round boundaries so every tool call is
// immediately followed by its result. Tool invocations without a final output
// are dropped, since the model cannot be shown a call it never got an answer to.
func ToChatMessages(messages []Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			out = append(out, llm.ChatMessage{Role: llm.RoleUser, Content: msg.Text()})
		case RoleAssistant:
			out = appendAssistant(out, msg)
		}
	}
	return out
}

type roundBuilder struct {
	text    strings.Builder
	calls   []llm.ToolCall
	results []llm.ChatMessage
}

func (b *roundBuilder) empty() bool {
	return b.text.Len() == 0 && len(b.calls) == 0
}

func (b *roundBuilder) flush(out []llm.ChatMessage) []llm.ChatMessage {
	if b.empty() {
		return out
	}
	out = append(out, llm.ChatMessage{
		Role:      llm.RoleAssistant,
		Content:   b.text.String(),
		ToolCalls: b.calls,
	})
	out = append(out, b.results...)
	*b = roundBuilder{}
	return out
}

func appendAssistant(out []llm.ChatMessage, msg Message) []llm.ChatMessage {
	var round roundBuilder
	for _, part := range msg.Parts {
		switch part.Type {
		case PartTypeStepStart:
			out = round.flush(out)
		case PartTypeText:
			// Text after a tool call belongs to the next round.
			if len(round.calls) > 0 {
				out = round.flush(out)
			}
			round.text.WriteString(part.Text)
		case PartTypeToolInvocation:
			if !part.HasOutput() {
				continue
			}
			args := part.Input
			if len(args) == 0 {
				args = []byte("{}")
			}
			round.calls = append(round.calls, llm.ToolCall{
				ID:   part.CallID,
				Type: "function",
				Function: llm.ToolFunction{
					Name:      part.ToolName,
					Arguments: args,
				},
			})
			round.results = append(round.results, llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    string(part.Output),
				ToolCallID: part.CallID,
			})
		}
	}
	return round.flush(out)
}
