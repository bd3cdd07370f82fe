package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"jan-server/services/claims-api/internal/infrastructure/database/entities"
)

// AutoMigrate applies database schema changes for claims, conversations and the decision outbox.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Claim{},
		&entities.ClaimStatusChange{},
		&entities.Conversation{},
		&entities.ConversationMessage{},
		&entities.DecisionDelivery{},
	); err != nil {
		return err
	}

	log.Info().Msg("database schema up to date")
	return nil
}
