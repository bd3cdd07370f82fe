package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/tool"
)

func TestMachineFor(t *testing.T) {
	tests := []struct {
		name     tool.Name
		positive conversation.ToolState
		negative conversation.ToolState
	}{
		{tool.NameSuggestAction, conversation.ToolStateApproved, conversation.ToolStateRejected},
		{tool.NameDraftAppeal, conversation.ToolStateAccepted, conversation.ToolStateDiscarded},
		{tool.NameUpdateClaimStatus, conversation.ToolStateConfirmed, conversation.ToolStateCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			m, err := MachineFor(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.positive, m.Positive)
			assert.Equal(t, tt.negative, m.Negative)
			assert.True(t, m.IsPositive(tt.positive))
			assert.False(t, m.IsPositive(tt.negative))
		})
	}

	_, err := MachineFor(tool.NameLookupClaim)
	assert.ErrorIs(t, err, ErrNotGated)
}

func TestMachine_TransitionTo(t *testing.T) {
	m, err := MachineFor(tool.NameSuggestAction)
	require.NoError(t, err)

	tests := []struct {
		name    string
		from    conversation.ToolState
		to      conversation.ToolState
		wantErr bool
	}{
		{"proposed to approved", conversation.ToolStateProposed, conversation.ToolStateApproved, false},
		{"proposed to rejected", conversation.ToolStateProposed, conversation.ToolStateRejected, false},
		{"approved is terminal", conversation.ToolStateApproved, conversation.ToolStateRejected, true},
		{"rejected is terminal", conversation.ToolStateRejected, conversation.ToolStateApproved, true},
		{"outcome of another tool", conversation.ToolStateProposed, conversation.ToolStateConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.TransitionTo(tt.from, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestMachine_Allows(t *testing.T) {
	m, err := MachineFor(tool.NameDraftAppeal)
	require.NoError(t, err)

	assert.True(t, m.Allows(conversation.ToolStateAccepted))
	assert.True(t, m.Allows(conversation.ToolStateDiscarded))
	assert.False(t, m.Allows(conversation.ToolStateApproved))
	assert.False(t, m.Allows(conversation.ToolStateProposed))
}
