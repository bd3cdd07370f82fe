package decision

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/tool"
)

var (
	// ErrNotFound is returned when no lifecycle record exists for a call id.
	ErrNotFound = errors.New("tool call not found")
	// ErrAlreadyExists is returned when a call id is proposed twice.
	ErrAlreadyExists = errors.New("tool call already exists")
)

// Record is the persisted lifecycle of one gated tool call, keyed by CallID.
type Record struct {
	CallID         string                 `json:"callId"`
	ToolName       tool.Name              `json:"toolName"`
	Input          json.RawMessage        `json:"input"`
	ClaimID        string                 `json:"claimId"`
	ConversationID string                 `json:"conversationId,omitempty"`
	State          conversation.ToolState `json:"state"`
	Output         json.RawMessage        `json:"output,omitempty"`
	ProposedAt     time.Time              `json:"proposedAt"`
	DecidedAt      *time.Time             `json:"decidedAt,omitempty"`
}

// Store is the key-value store holding lifecycle records.
type Store interface {
	// Create inserts a new record and fails with ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, callID string) (*Record, error)
	// GetMany returns the records that exist; missing ids are simply absent from the map.
	GetMany(ctx context.Context, callIDs []string) (map[string]*Record, error)
	Save(ctx context.Context, record *Record) error
	// Lock serializes decisions on one call id until the returned release func runs.
	Lock(ctx context.Context, callID string) (func(), error)
}
