package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/infrastructure/metrics"
	"jan-server/services/claims-api/internal/infrastructure/observability"
	"jan-server/services/claims-api/internal/interfaces/httpserver/requests"
)

const (
	msgUpstreamUnavailable = "AI service unavailable"
	msgTurnFailed          = "failed to process chat turn"
)

// TurnRunner runs one orchestrated chat turn.
type TurnRunner interface {
	RunTurn(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error)
}

// ChatHandler serves the streaming chat gateway.
type ChatHandler struct {
	runner        TurnRunner
	decisions     decision.Service
	conversations conversation.Service
	log           zerolog.Logger
}

// NewChatHandler constructs the handler.
func NewChatHandler(runner TurnRunner, decisions decision.Service, conversations conversation.Service, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		runner:        runner,
		decisions:     decisions,
		conversations: conversations,
		log:           log.With().Str("handler", "chat").Logger(),
	}
}

// Chat handles POST /chat.
// The body is {messages, claimId?, conversationId?}. A trailing user message is the
// new input; a trailing assistant message continues the turn after a decision.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req requests.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	messages, err := req.ParseMessages()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID := req.Conversation()
	claimID := req.Claim()
	history, userMessage := splitTurn(messages)

	ctx, span := observability.StartChatSpan(c.Request.Context(), conversationID, claimID)
	defer span.End()

	history, err = h.decisions.Hydrate(ctx, history)
	if err != nil {
		h.log.Error().Err(err).Msg("hydrate tool call states")
		observability.RecordError(span, err, "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tool call states"})
		return
	}

	messageID := conversation.NewMessageID()
	stream := newSSEStream(c.Writer, startEvent{ConversationID: conversationID, MessageID: messageID}, h.log)

	params := tool.TurnParams{
		History:        history,
		ClaimID:        claimID,
		ConversationID: conversationID,
		MessageID:      messageID,
		Observer:       newChatObserver(stream),
	}
	if userMessage != nil {
		params.UserText = userMessage.Text()
	}

	result, runErr := h.runner.RunTurn(ctx, params)
	if conversationID != "" && result != nil && (runErr == nil || stream.Started()) {
		h.persist(ctx, req, userMessage, result.Assistant)
	}

	if runErr != nil {
		h.fail(c, stream, result, runErr)
		observability.RecordError(span, runErr, "error")
		return
	}

	span.SetAttributes(attribute.String("turn.finish_reason", string(result.FinishReason)))
	metrics.RecordTurn(string(result.FinishReason), result.Steps)
	stream.Finish(result.FinishReason)
}

func (h *ChatHandler) fail(c *gin.Context, stream *sseStream, result *tool.TurnResult, err error) {
	steps := 0
	if result != nil {
		steps = result.Steps
	}

	if c.Request.Context().Err() != nil && errors.Is(err, context.Canceled) {
		h.log.Info().Int("steps", steps).Msg("client disconnected mid-turn")
		metrics.RecordTurn("cancelled", steps)
		return
	}
	metrics.RecordTurn("error", steps)

	message := msgTurnFailed
	status := http.StatusInternalServerError
	var upstreamErr *tool.UpstreamError
	if errors.As(err, &upstreamErr) {
		message = msgUpstreamUnavailable
		status = http.StatusBadGateway
	}
	h.log.Error().Err(err).Bool("streaming", stream.Started()).Msg("chat turn failed")

	if !stream.Started() {
		c.JSON(status, gin.H{"error": message})
		return
	}
	stream.Fail(message)
}

// persist stores the turn even if the client has gone away.
func (h *ChatHandler) persist(ctx context.Context, req requests.ChatRequest, userMessage *conversation.Message, assistant conversation.Message) {
	var claimID *string
	if id := req.Claim(); id != "" {
		claimID = &id
	}
	err := h.conversations.RecordTurn(context.WithoutCancel(ctx), conversation.RecordTurnParams{
		ConversationID: req.Conversation(),
		ClaimID:        claimID,
		UserMessage:    userMessage,
		Assistant:      assistant,
	})
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", req.Conversation()).Msg("persist chat turn")
	}
}

// splitTurn separates the new user message from prior history.
func splitTurn(messages []conversation.Message) ([]conversation.Message, *conversation.Message) {
	last := len(messages) - 1
	if last < 0 || messages[last].Role != conversation.RoleUser {
		return messages, nil
	}
	user := messages[last]
	return messages[:last], &user
}
