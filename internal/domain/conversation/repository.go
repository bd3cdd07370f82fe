package conversation

import (
	"context"
	"encoding/json"
)

// Repository persists conversations and their messages.
type Repository interface {
	// FindOrCreate returns the conversation with publicID, creating it when absent.
	FindOrCreate(ctx context.Context, publicID string, claimID *string) (*Conversation, error)
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	AppendMessages(ctx context.Context, conversationID uint, messages []Message) error
	ListMessages(ctx context.Context, conversationID uint) ([]Message, error)
	// UpdateToolPart rewrites the state and output of the part carrying callID.
	UpdateToolPart(ctx context.Context, conversationID uint, callID string, state ToolState, output json.RawMessage) error
}
