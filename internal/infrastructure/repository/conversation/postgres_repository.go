package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/infrastructure/database/entities"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

// ConversationGormRepository persists conversations and their message history.
type ConversationGormRepository struct {
	db *gorm.DB
}

var _ domain.Repository = (*ConversationGormRepository)(nil)

// NewConversationGormRepository constructs the repository.
func NewConversationGormRepository(db *gorm.DB) *ConversationGormRepository {
	return &ConversationGormRepository{db: db}
}

// FindOrCreate returns the conversation, inserting it first when it does not exist yet.
func (r *ConversationGormRepository) FindOrCreate(ctx context.Context, publicID string, claimID *string) (*domain.Conversation, error) {
	row := entities.Conversation{PublicID: publicID, ClaimID: claimID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "public_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create conversation", err, "conversation-create-db-001")
	}
	return r.FindByPublicID(ctx, publicID)
}

// FindByPublicID loads a conversation without its messages.
func (r *ConversationGormRepository) FindByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	var row entities.Conversation
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("conversation %s not found", publicID), domain.ErrNotFound, "conversation-find-notfound-001")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to load conversation", err, "conversation-find-db-001")
	}
	return row.EtoD(), nil
}

// AppendMessages adds messages after the last stored sequence number.
func (r *ConversationGormRepository) AppendMessages(ctx context.Context, conversationID uint, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the conversation row so concurrent turns get distinct sequence numbers.
		var conv entities.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conv, conversationID).Error; err != nil {
			return err
		}

		var last int
		if err := tx.Model(&entities.ConversationMessage{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		rows := make([]entities.ConversationMessage, 0, len(messages))
		for i, msg := range messages {
			row, err := entities.NewSchemaConversationMessage(conversationID, last+i+1, msg)
			if err != nil {
				return err
			}
			rows = append(rows, *row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&conv).Update("updated_at", gorm.Expr("NOW()")).Error
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to append conversation messages", err, "conversation-append-db-001")
	}
	return nil
}

// ListMessages returns stored messages in append order.
func (r *ConversationGormRepository) ListMessages(ctx context.Context, conversationID uint) ([]domain.Message, error) {
	var rows []entities.ConversationMessage
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list conversation messages", err, "conversation-list-db-001")
	}

	messages := make([]domain.Message, 0, len(rows))
	for i := range rows {
		msg, err := rows[i].EtoD()
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
				"failed to decode conversation message", err, "conversation-list-decode-001")
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// UpdateToolPart rewrites the part with callID. The newest message holding the call wins.
func (r *ConversationGormRepository) UpdateToolPart(ctx context.Context, conversationID uint, callID string, state domain.ToolState, output json.RawMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []entities.ConversationMessage
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ? AND role = ?", conversationID, string(domain.RoleAssistant)).
			Order("sequence DESC").
			Find(&rows).Error; err != nil {
			return err
		}

		for i := range rows {
			msg, err := rows[i].EtoD()
			if err != nil {
				return err
			}
			if !replaceToolPart(&msg, callID, state, output) {
				continue
			}
			parts, err := json.Marshal(msg.Parts)
			if err != nil {
				return err
			}
			return tx.Model(&rows[i]).Update("parts", datatypes.JSON(parts)).Error
		}
		return domain.ErrNotFound
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("tool call %s not found in conversation", callID), err, "conversation-part-notfound-001")
		}
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to update tool part", err, "conversation-part-db-001")
	}
	return nil
}

func replaceToolPart(msg *domain.Message, callID string, state domain.ToolState, output json.RawMessage) bool {
	for _, part := range msg.ToolParts() {
		if part.CallID == callID {
			part.State = state
			part.Output = output
			return true
		}
	}
	return false
}
