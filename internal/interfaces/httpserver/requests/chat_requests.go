package requests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jan-server/services/claims-api/internal/domain/conversation"
)

// ChatRequest models POST /chat input. Messages stays raw so shape errors can be reported precisely.
type ChatRequest struct {
	Messages       json.RawMessage `json:"messages"`
	ClaimID        *string         `json:"claimId,omitempty" binding:"omitempty,max=64"`
	ConversationID *string         `json:"conversationId,omitempty" binding:"omitempty,max=128"`
}

// ParseMessages decodes and validates the message list.
func (r ChatRequest) ParseMessages() ([]conversation.Message, error) {
	raw := bytes.TrimSpace(r.Messages)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errors.New("messages is required")
	}
	if raw[0] != '[' {
		return nil, errors.New("messages must be a list")
	}

	var messages []conversation.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, errors.New("messages must not be empty")
	}
	for i, msg := range messages {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
	}
	return messages, nil
}

// Claim returns the trimmed claim id, or "" when absent.
func (r ChatRequest) Claim() string {
	return trimmed(r.ClaimID)
}

// Conversation returns the trimmed conversation id, or "" when absent.
func (r ChatRequest) Conversation() string {
	return trimmed(r.ConversationID)
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
