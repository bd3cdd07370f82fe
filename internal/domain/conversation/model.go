package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a stored conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType tags the variant carried by a Part.
type PartType string

const (
	PartTypeText           PartType = "text"
	PartTypeToolInvocation PartType = "tool-invocation"
	// PartTypeStepStart marks the boundary between two model rounds inside one assistant message.
	PartTypeStepStart PartType = "step-start"
)

// ToolState is the lifecycle state of a tool-invocation part.
type ToolState string

const (
	ToolStateProposed  ToolState = "proposed"
	ToolStateApproved  ToolState = "approved"
	ToolStateRejected  ToolState = "rejected"
	ToolStateAccepted  ToolState = "accepted"
	ToolStateDiscarded ToolState = "discarded"
	ToolStateConfirmed ToolState = "confirmed"
	ToolStateCancelled ToolState = "cancelled"

	// Server-executed tools resolve straight to one of these.
	ToolStateOutputAvailable ToolState = "output-available"
	ToolStateOutputError     ToolState = "output-error"
)

// IsTerminal reports whether the part's output is final.
func (s ToolState) IsTerminal() bool {
	switch s {
	case ToolStateApproved, ToolStateRejected,
		ToolStateAccepted, ToolStateDiscarded,
		ToolStateConfirmed, ToolStateCancelled,
		ToolStateOutputAvailable, ToolStateOutputError:
		return true
	}
	return false
}

// Part is one element of a message. Type selects which fields are meaningful.
type Part struct {
	Type     PartType        `json:"type"`
	Text     string          `json:"text,omitempty"`
	ToolName string          `json:"toolName,omitempty"`
	CallID   string          `json:"callId,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	State    ToolState       `json:"state,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Type: PartTypeText, Text: text}
}

// HasOutput reports whether a tool-invocation part carries a final output.
func (p Part) HasOutput() bool {
	return p.Type == PartTypeToolInvocation && p.State.IsTerminal() && len(p.Output) > 0
}

// Message is a single conversational turn from one author.
type Message struct {
	ID        string     `json:"id,omitempty"`
	Role      Role       `json:"role"`
	Parts     []Part     `json:"parts"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts the `{role, text}` shorthand for single-text messages.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var raw struct {
		alias
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message(raw.alias)
	if len(m.Parts) == 0 && raw.Text != nil {
		m.Parts = []Part{TextPart(*raw.Text)}
	}
	return nil
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, part := range m.Parts {
		if part.Type == PartTypeText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Validate checks the structural shape of an incoming message.
func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return fmt.Errorf("unsupported role %q", m.Role)
	}
	for i, part := range m.Parts {
		switch part.Type {
		case PartTypeText, PartTypeStepStart:
		case PartTypeToolInvocation:
			if m.Role != RoleAssistant {
				return fmt.Errorf("part %d: tool invocations are only valid on assistant messages", i)
			}
			if part.CallID == "" || part.ToolName == "" {
				return fmt.Errorf("part %d: tool invocation requires callId and toolName", i)
			}
		default:
			return fmt.Errorf("part %d: unsupported part type %q", i, part.Type)
		}
	}
	return nil
}

// ToolParts returns pointers to the message's tool-invocation parts in order.
func (m *Message) ToolParts() []*Part {
	var parts []*Part
	for i := range m.Parts {
		if m.Parts[i].Type == PartTypeToolInvocation {
			parts = append(parts, &m.Parts[i])
		}
	}
	return parts
}

// Conversation is a stored, ordered message history.
type Conversation struct {
	ID        uint      `json:"-"`
	PublicID  string    `json:"id"`
	ClaimID   *string   `json:"claimId,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
