package webhook

import (
	"context"
	"encoding/json"

	"jan-server/services/claims-api/internal/domain/decision"
)

// EventDecisionRecorded is sent after a human decision is committed.
const EventDecisionRecorded = "decision.recorded"

// Service handles webhook notifications for decision events.
type Service interface {
	// NotifyDecision announces a committed decision on a gated tool call.
	NotifyDecision(ctx context.Context, record decision.Record) error
}

// WebhookPayload is the structure sent to webhook URLs.
type WebhookPayload struct {
	ID             string          `json:"id"`
	Event          string          `json:"event"`
	ToolName       string          `json:"tool_name"`
	State          string          `json:"state"`
	ClaimID        string          `json:"claim_id"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Input          json.RawMessage `json:"input,omitempty"`
	Output         json.RawMessage `json:"output,omitempty"`
	DecidedAt      *string         `json:"decided_at,omitempty"`
}

var _ decision.Notifier = (Service)(nil)
