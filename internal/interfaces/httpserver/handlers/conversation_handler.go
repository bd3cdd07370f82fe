package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/interfaces/httpserver/responses"
)

// ConversationHandler replays stored conversations.
type ConversationHandler struct {
	conversations conversation.Service
	decisions     decision.Service
	log           zerolog.Logger
}

// NewConversationHandler constructs the handler.
func NewConversationHandler(conversations conversation.Service, decisions decision.Service, log zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		decisions:     decisions,
		log:           log.With().Str("handler", "conversation").Logger(),
	}
}

// Get handles GET /v1/conversations/:conversation_id
func (h *ConversationHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	conv, err := h.conversations.Get(ctx, c.Param("conversation_id"))
	if err != nil {
		responses.HandleError(c, err, "failed to load conversation")
		return
	}

	messages, err := h.decisions.Hydrate(ctx, conv.Messages)
	if err != nil {
		responses.HandleError(c, err, "failed to load tool call states")
		return
	}
	c.JSON(http.StatusOK, responses.FromConversation(conv, messages))
}
