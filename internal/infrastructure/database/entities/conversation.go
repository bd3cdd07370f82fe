package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"jan-server/services/claims-api/internal/domain/conversation"
)

// Conversation represents the database schema for conversations.
type Conversation struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PublicID string  `gorm:"type:varchar(64);uniqueIndex;not null"`
	ClaimID  *string `gorm:"type:varchar(64);index"`

	Messages []ConversationMessage `gorm:"foreignKey:ConversationID"`
}

// TableName specifies the table name for Conversation.
func (Conversation) TableName() string {
	return "conversations"
}

// EtoD converts the row into a domain conversation without messages.
func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		ClaimID:   c.ClaimID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ConversationMessage is one stored message. Parts are kept as a JSON array.
type ConversationMessage struct {
	ID             uint           `gorm:"primaryKey"`
	ConversationID uint           `gorm:"uniqueIndex:idx_conversation_message_sequence;not null"`
	Sequence       int            `gorm:"uniqueIndex:idx_conversation_message_sequence;not null"`
	PublicID       string         `gorm:"type:varchar(64);index;not null"`
	Role           string         `gorm:"type:varchar(16);not null"`
	Parts          datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ConversationMessage.
func (ConversationMessage) TableName() string {
	return "conversation_messages"
}

// NewSchemaConversationMessage converts a domain message into its row.
func NewSchemaConversationMessage(conversationID uint, sequence int, msg conversation.Message) (*ConversationMessage, error) {
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return nil, err
	}
	row := &ConversationMessage{
		ConversationID: conversationID,
		Sequence:       sequence,
		PublicID:       msg.ID,
		Role:           string(msg.Role),
		Parts:          datatypes.JSON(parts),
	}
	if msg.CreatedAt != nil {
		row.CreatedAt = *msg.CreatedAt
	}
	return row, nil
}

// EtoD converts the row into a domain message.
func (m *ConversationMessage) EtoD() (conversation.Message, error) {
	var parts []conversation.Part
	if len(m.Parts) > 0 {
		if err := json.Unmarshal(m.Parts, &parts); err != nil {
			return conversation.Message{}, err
		}
	}
	createdAt := m.CreatedAt
	return conversation.Message{
		ID:        m.PublicID,
		Role:      conversation.Role(m.Role),
		Parts:     parts,
		CreatedAt: &createdAt,
	}, nil
}
