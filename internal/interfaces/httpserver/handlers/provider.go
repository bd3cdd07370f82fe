package handlers

import (
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Chat         *ChatHandler
	Decision     *DecisionHandler
	Claim        *ClaimHandler
	Conversation *ConversationHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	runner TurnRunner,
	decisionService decision.Service,
	claimService claim.Service,
	conversationService conversation.Service,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Chat:         NewChatHandler(runner, decisionService, conversationService, log),
		Decision:     NewDecisionHandler(decisionService, log),
		Claim:        NewClaimHandler(claimService, log),
		Conversation: NewConversationHandler(conversationService, decisionService, log),
	}
}
