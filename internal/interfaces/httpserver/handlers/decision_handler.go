package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/infrastructure/metrics"
	"jan-server/services/claims-api/internal/infrastructure/observability"
	"jan-server/services/claims-api/internal/interfaces/httpserver/requests"
	"jan-server/services/claims-api/internal/interfaces/httpserver/responses"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

// DecisionHandler exposes the decision feedback channel for gated tool calls.
type DecisionHandler struct {
	service decision.Service
	log     zerolog.Logger
}

// NewDecisionHandler constructs the handler.
func NewDecisionHandler(service decision.Service, log zerolog.Logger) *DecisionHandler {
	return &DecisionHandler{
		service: service,
		log:     log.With().Str("handler", "decision").Logger(),
	}
}

// Decide handles POST /v1/tool-calls/:call_id/decision
func (h *DecisionHandler) Decide(c *gin.Context) {
	callID := c.Param("call_id")

	var req requests.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid decision: "+err.Error(), "decision-request-invalid-001")
		return
	}

	ctx, span := observability.StartDecisionSpan(c.Request.Context(), callID, req.Outcome)
	defer span.End()

	result, err := h.service.Decide(ctx, callID, decision.Outcome{
		Target:    conversation.ToolState(req.Outcome),
		FinalBody: req.FinalBody,
	})
	if err != nil {
		observability.RecordError(span, err, "error")
		responses.HandleError(c, err, "failed to record decision")
		return
	}

	metrics.RecordDecision(string(result.Record.ToolName), req.Outcome, result.Applied)
	if result.Applied {
		observability.AddStatusTransition(span, string(conversation.ToolStateProposed), string(result.Record.State))
	}
	c.JSON(http.StatusOK, responses.FromDecision(result))
}

// Get handles GET /v1/tool-calls/:call_id
func (h *DecisionHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		responses.HandleError(c, err, "failed to load tool call")
		return
	}
	c.JSON(http.StatusOK, responses.FromRecord(record))
}
