// Package decision tracks gated tool calls from proposal to a human decision
// and produces the tool result fed back into the conversation.
package decision

import (
	"errors"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/tool"
)

var (
	// ErrInvalidTransition is returned when an outcome does not belong to the call's machine.
	ErrInvalidTransition = errors.New("invalid decision transition")
	// ErrNotGated is returned for tools that never wait on a human.
	ErrNotGated = errors.New("tool is not human-gated")
)

// Machine is the two-outcome lifecycle of one gated tool.
type Machine struct {
	Tool     tool.Name
	Positive conversation.ToolState
	Negative conversation.ToolState
}

var machines = map[tool.Name]Machine{
	tool.NameSuggestAction: {
		Tool:     tool.NameSuggestAction,
		Positive: conversation.ToolStateApproved,
		Negative: conversation.ToolStateRejected,
	},
	tool.NameDraftAppeal: {
		Tool:     tool.NameDraftAppeal,
		Positive: conversation.ToolStateAccepted,
		Negative: conversation.ToolStateDiscarded,
	},
	tool.NameUpdateClaimStatus: {
		Tool:     tool.NameUpdateClaimStatus,
		Positive: conversation.ToolStateConfirmed,
		Negative: conversation.ToolStateCancelled,
	},
}

// MachineFor returns the lifecycle of a gated tool.
func MachineFor(name tool.Name) (Machine, error) {
	m, ok := machines[name]
	if !ok {
		return Machine{}, ErrNotGated
	}
	return m, nil
}

// ValidTransitions lists the allowed moves. Terminal states have none.
func (m Machine) ValidTransitions() map[conversation.ToolState][]conversation.ToolState {
	return map[conversation.ToolState][]conversation.ToolState{
		conversation.ToolStateProposed: {m.Positive, m.Negative},
		m.Positive:                     {},
		m.Negative:                     {},
	}
}

// Allows reports whether target is one of the machine's outcomes.
func (m Machine) Allows(target conversation.ToolState) bool {
	return target == m.Positive || target == m.Negative
}

// IsPositive reports whether target is the approving outcome.
func (m Machine) IsPositive(target conversation.ToolState) bool {
	return target == m.Positive
}

// CanTransition checks a single move.
func (m Machine) CanTransition(from, to conversation.ToolState) bool {
	for _, t := range m.ValidTransitions()[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TransitionTo returns the new state or ErrInvalidTransition.
func (m Machine) TransitionTo(from, to conversation.ToolState) (conversation.ToolState, error) {
	if !m.CanTransition(from, to) {
		return from, ErrInvalidTransition
	}
	return to, nil
}
