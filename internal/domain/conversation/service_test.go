package conversation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	conversations map[string]*Conversation
	messages      map[uint][]Message
	nextID        uint
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		conversations: make(map[string]*Conversation),
		messages:      make(map[uint][]Message),
	}
}

func (r *memoryRepository) FindOrCreate(_ context.Context, publicID string, claimID *string) (*Conversation, error) {
	if conv, ok := r.conversations[publicID]; ok {
		return conv, nil
	}
	r.nextID++
	conv := &Conversation{ID: r.nextID, PublicID: publicID, ClaimID: claimID}
	r.conversations[publicID] = conv
	return conv, nil
}

func (r *memoryRepository) FindByPublicID(_ context.Context, publicID string) (*Conversation, error) {
	conv, ok := r.conversations[publicID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (r *memoryRepository) AppendMessages(_ context.Context, id uint, messages []Message) error {
	r.messages[id] = append(r.messages[id], messages...)
	return nil
}

func (r *memoryRepository) ListMessages(_ context.Context, id uint) ([]Message, error) {
	return r.messages[id], nil
}

func (r *memoryRepository) UpdateToolPart(_ context.Context, id uint, callID string, state ToolState, output json.RawMessage) error {
	for i := range r.messages[id] {
		for _, part := range r.messages[id][i].ToolParts() {
			if part.CallID == callID {
				part.State = state
				part.Output = output
				return nil
			}
		}
	}
	return ErrNotFound
}

func TestService_RecordTurnAndGet(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()
	claimID := "CLM-1001"

	user := Message{Role: RoleUser, Parts: []Part{TextPart("What now?")}}
	assistant := Message{Role: RoleAssistant, Parts: []Part{
		{Type: PartTypeStepStart},
		{Type: PartTypeToolInvocation, ToolName: "suggestAction", CallID: "call_1", State: ToolStateProposed},
	}}
	require.NoError(t, svc.RecordTurn(ctx, RecordTurnParams{
		ConversationID: "conv_1",
		ClaimID:        &claimID,
		UserMessage:    &user,
		Assistant:      assistant,
	}))

	conv, err := svc.Get(ctx, "conv_1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "CLM-1001", *conv.ClaimID)
	assert.Contains(t, conv.Messages[0].ID, "msg_")
	assert.NotNil(t, conv.Messages[0].CreatedAt)
	assert.Equal(t, RoleAssistant, conv.Messages[1].Role)

	require.NoError(t, svc.ApplyToolOutput(ctx, "conv_1", "call_1", ToolStateApproved, json.RawMessage(`{"approved":true}`)))
	conv, err = svc.Get(ctx, "conv_1")
	require.NoError(t, err)
	part := conv.Messages[1].Parts[1]
	assert.Equal(t, ToolStateApproved, part.State)
	assert.JSONEq(t, `{"approved":true}`, string(part.Output))
}

func TestService_RecordTurnSkipsEmptyAssistant(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, zerolog.Nop())

	require.NoError(t, svc.RecordTurn(context.Background(), RecordTurnParams{ConversationID: "conv_1"}))
	conv, err := svc.Get(context.Background(), "conv_1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
}

func TestService_ApplyToolOutputUnknownConversation(t *testing.T) {
	svc := NewService(newMemoryRepository(), zerolog.Nop())
	err := svc.ApplyToolOutput(context.Background(), "missing", "call_1", ToolStateApproved, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
