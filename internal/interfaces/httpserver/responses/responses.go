package responses

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code          string `json:"code"`
	Error         string `json:"error"`
	Message       string `json:"message,omitempty"`
	ErrorInstance error  `json:"-"`
	RequestID     string `json:"request_id,omitempty"`
}

// HandleError handles domain errors and returns appropriate HTTP responses
func HandleError(reqCtx *gin.Context, err error, message string) {
	var domainErr *platformerrors.PlatformError
	if errors.As(err, &domainErr) {
		statusCode := platformerrors.ErrorTypeToHTTPStatus(domainErr.GetErrorType())

		errResp := ErrorResponse{
			Code:          domainErr.GetUUID(),
			Error:         message,
			Message:       domainErr.Message,
			ErrorInstance: domainErr,
			RequestID:     domainErr.GetRequestID(),
		}

		reqCtx.AbortWithStatusJSON(statusCode, errResp)
		return
	}
	errResp := ErrorResponse{
		Error:         message,
		Message:       message,
		ErrorInstance: err,
		RequestID:     platformerrors.RequestIDFromContext(reqCtx.Request.Context()),
	}
	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}

// HandleNewError creates a new typed error at the handler layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string, uuid string) {
	ctx := reqCtx.Request.Context()
	err := platformerrors.NewError(ctx, platformerrors.LayerHandler, errorType, message, nil, uuid)

	errResp := ErrorResponse{
		Code:          err.GetUUID(),
		Error:         message,
		Message:       message,
		ErrorInstance: err,
		RequestID:     err.GetRequestID(),
	}

	reqCtx.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(err.GetErrorType()), errResp)
}

// ToolCallPayload is the lifecycle view of a gated tool call.
type ToolCallPayload struct {
	CallID         string                 `json:"callId"`
	ToolName       string                 `json:"toolName"`
	ClaimID        string                 `json:"claimId"`
	ConversationID string                 `json:"conversationId,omitempty"`
	State          conversation.ToolState `json:"state"`
	Input          json.RawMessage        `json:"input"`
	Output         json.RawMessage        `json:"output,omitempty"`
	ProposedAt     time.Time              `json:"proposedAt"`
	DecidedAt      *time.Time             `json:"decidedAt,omitempty"`
}

// FromRecord maps a lifecycle record to its payload.
func FromRecord(record *decision.Record) ToolCallPayload {
	return ToolCallPayload{
		CallID:         record.CallID,
		ToolName:       string(record.ToolName),
		ClaimID:        record.ClaimID,
		ConversationID: record.ConversationID,
		State:          record.State,
		Input:          record.Input,
		Output:         record.Output,
		ProposedAt:     record.ProposedAt,
		DecidedAt:      record.DecidedAt,
	}
}

// DecisionPayload is returned by the decision endpoint.
type DecisionPayload struct {
	CallID   string                 `json:"callId"`
	ToolName string                 `json:"toolName"`
	State    conversation.ToolState `json:"state"`
	Output   json.RawMessage        `json:"output"`
	Applied  bool                   `json:"applied"`
}

// FromDecision maps a decision result to its payload.
func FromDecision(result *decision.Result) DecisionPayload {
	return DecisionPayload{
		CallID:   result.Record.CallID,
		ToolName: string(result.Record.ToolName),
		State:    result.Record.State,
		Output:   result.Record.Output,
		Applied:  result.Applied,
	}
}

// ClaimListResponse wraps a claim listing.
type ClaimListResponse struct {
	Data  []*claim.Claim `json:"data"`
	Total int            `json:"total"`
}

// ConversationResponse is a replayed conversation.
type ConversationResponse struct {
	ID        string                 `json:"id"`
	ClaimID   *string                `json:"claimId,omitempty"`
	Messages  []conversation.Message `json:"messages"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// FromConversation maps a conversation and its hydrated messages to the response.
func FromConversation(conv *conversation.Conversation, messages []conversation.Message) ConversationResponse {
	if messages == nil {
		messages = []conversation.Message{}
	}
	return ConversationResponse{
		ID:        conv.PublicID,
		ClaimID:   conv.ClaimID,
		Messages:  messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
}
