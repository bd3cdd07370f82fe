package tool

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/llm"
)

func llmCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.ToolFunction{Name: name, Arguments: json.RawMessage(args)}}
}

func TestStreamAccumulator_Text(t *testing.T) {
	acc := newStreamAccumulator()
	for _, delta := range textRound("Hel", "lo").deltas {
		acc.Apply(delta)
	}

	choice := acc.Result()
	require.NotNil(t, choice)
	assert.Equal(t, "Hello", choice.Message.Content)
	assert.Equal(t, llm.RoleAssistant, choice.Message.Role)
	assert.Equal(t, "stop", choice.FinishReason)
	assert.Empty(t, choice.Message.ToolCalls)
}

func TestStreamAccumulator_ToolCallsByIndex(t *testing.T) {
	acc := newStreamAccumulator()
	round := toolRound(
		scriptedCall{id: "call_a", name: "lookupClaim", args: `{"claimId":"CLM-1001"}`},
		scriptedCall{id: "call_b", name: "lookupClaim", args: `{"claimId":"CLM-1002"}`},
	)
	for _, delta := range round.deltas {
		assert.Empty(t, acc.Apply(delta))
	}

	choice := acc.Result()
	require.NotNil(t, choice)
	require.Len(t, choice.Message.ToolCalls, 2)
	assert.Equal(t, "call_a", choice.Message.ToolCalls[0].ID)
	assert.JSONEq(t, `{"claimId":"CLM-1001"}`, string(choice.Message.ToolCalls[0].Function.Arguments))
	assert.Equal(t, "call_b", choice.Message.ToolCalls[1].ID)
	assert.JSONEq(t, `{"claimId":"CLM-1002"}`, string(choice.Message.ToolCalls[1].Function.Arguments))
}

func TestStreamAccumulator_ArgumentFragments(t *testing.T) {
	acc := newStreamAccumulator()
	idx := 0
	for _, fragment := range []string{`{"claim`, `Id":"CLM`, `-1001"}`} {
		acc.Apply(&llm.ChatCompletionDelta{Choices: []llm.ChatCompletionDeltaChoice{{Delta: llm.ChatMessage{
			ToolCalls: []llm.ToolCall{{Index: &idx, Function: llm.ToolFunction{Name: "", Arguments: json.RawMessage(fragment)}}},
		}}}})
	}

	choice := acc.Result()
	require.Len(t, choice.Message.ToolCalls, 1)
	call := choice.Message.ToolCalls[0]
	assert.JSONEq(t, `{"claimId":"CLM-1001"}`, string(call.Function.Arguments))
	assert.Contains(t, call.ID, "call_", "missing ids are generated")
	assert.Equal(t, "function", call.Type)
}

func TestStreamAccumulator_IgnoresOtherChoices(t *testing.T) {
	acc := newStreamAccumulator()
	text := acc.Apply(&llm.ChatCompletionDelta{Choices: []llm.ChatCompletionDeltaChoice{
		{Index: 1, Delta: llm.ChatMessage{Content: "ignored"}},
		{Index: 0, Delta: llm.ChatMessage{Content: "kept"}},
	}})
	assert.Equal(t, "kept", text)
	assert.Equal(t, "kept", acc.Result().Message.Content)
}

func TestStreamAccumulator_Empty(t *testing.T) {
	acc := newStreamAccumulator()
	acc.Apply(nil)
	acc.Apply(&llm.ChatCompletionDelta{})
	assert.Nil(t, acc.Result())
}
