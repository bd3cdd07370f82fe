package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service coordinates stored conversation history.
type Service interface {
	Get(ctx context.Context, publicID string) (*Conversation, error)
	RecordTurn(ctx context.Context, params RecordTurnParams) error
	ApplyToolOutput(ctx context.Context, publicID, callID string, state ToolState, output json.RawMessage) error
}

// RecordTurnParams carries the messages produced by one chat turn.
type RecordTurnParams struct {
	ConversationID string
	ClaimID        *string
	// UserMessage is nil for continuation turns that follow a decision.
	UserMessage *Message
	Assistant   Message
}

// ServiceImpl implements Service on top of a Repository.
type ServiceImpl struct {
	repo Repository
	log  zerolog.Logger
}

// NewService constructs the conversation service.
func NewService(repo Repository, log zerolog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo: repo,
		log:  log.With().Str("component", "conversation-service").Logger(),
	}
}

// Get loads a conversation and its messages in stored order.
func (s *ServiceImpl) Get(ctx context.Context, publicID string) (*Conversation, error) {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages
	return conv, nil
}

// RecordTurn appends the turn's user and assistant messages.
func (s *ServiceImpl) RecordTurn(ctx context.Context, params RecordTurnParams) error {
	conv, err := s.repo.FindOrCreate(ctx, params.ConversationID, params.ClaimID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var messages []Message
	if params.UserMessage != nil {
		messages = append(messages, stamp(*params.UserMessage, now))
	}
	if len(params.Assistant.Parts) > 0 {
		messages = append(messages, stamp(params.Assistant, now))
	}
	if len(messages) == 0 {
		return nil
	}

	if err := s.repo.AppendMessages(ctx, conv.ID, messages); err != nil {
		return err
	}
	s.log.Debug().
		Str("conversation_id", conv.PublicID).
		Int("messages", len(messages)).
		Msg("recorded turn")
	return nil
}

// ApplyToolOutput writes a decided tool call's state and output into stored history.
func (s *ServiceImpl) ApplyToolOutput(ctx context.Context, publicID, callID string, state ToolState, output json.RawMessage) error {
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateToolPart(ctx, conv.ID, callID, state, output); err != nil {
		return fmt.Errorf("update tool part %s: %w", callID, err)
	}
	return nil
}

// NewMessageID returns a public message identifier.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

func stamp(msg Message, now time.Time) Message {
	if msg.ID == "" {
		msg.ID = NewMessageID()
	}
	if msg.CreatedAt == nil {
		msg.CreatedAt = &now
	}
	return msg
}

var _ Service = (*ServiceImpl)(nil)
