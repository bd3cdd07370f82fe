package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"jan-server/services/claims-api/internal/domain/llm"
)

// Name identifies a registered tool.
type Name string

const (
	NameLookupClaim       Name = "lookupClaim"
	NameSuggestAction     Name = "suggestAction"
	NameDraftAppeal       Name = "draftAppeal"
	NameUpdateClaimStatus Name = "updateClaimStatus"
)

// Mode says who resolves a tool call.
type Mode string

const (
	// ModeServer tools are resolved inline by the orchestrator.
	ModeServer Mode = "server-executed"
	// ModeGated tools wait for a human decision outside the turn.
	ModeGated Mode = "client-gated"
)

// Call is a model-proposed tool invocation after argument parsing.
type Call struct {
	ID        string          `json:"callId"`
	Name      string          `json:"toolName"`
	Arguments json.RawMessage `json:"input"`
}

// StreamObserver receives turn events in emission order.
type StreamObserver interface {
	OnStepStart(step int)
	OnTextDelta(delta string)
	// OnToolCall fires once a call passed validation. Gated calls are already recorded as proposed.
	OnToolCall(call Call, mode Mode)
	OnToolResult(callID string, output json.RawMessage, isError bool)
	OnToolInputError(call Call, err error)
}

// ParseToolCall converts a model tool call into a Call, normalising the argument payload.
func ParseToolCall(call llm.ToolCall) (Call, error) {
	args := bytes.TrimSpace(call.Function.Arguments)

	// Some providers double-encode arguments as a JSON string.
	if len(args) > 0 && args[0] == '"' {
		var inner string
		if err := json.Unmarshal(args, &inner); err != nil {
			return Call{ID: call.ID, Name: call.Function.Name}, fmt.Errorf("decode arguments: %w", err)
		}
		args = []byte(strings.TrimSpace(inner))
	}
	if len(args) == 0 {
		args = []byte("{}")
	}
	if !json.Valid(args) {
		return Call{ID: call.ID, Name: call.Function.Name, Arguments: nil}, fmt.Errorf("arguments are not valid JSON")
	}

	return Call{
		ID:        call.ID,
		Name:      call.Function.Name,
		Arguments: json.RawMessage(args),
	}, nil
}
