package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

func decodedBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestDecisionHandler_Decide(t *testing.T) {
	deps := newTestDeps()
	var gotCallID string
	var gotOutcome decision.Outcome
	deps.decisions.DecideFunc = func(ctx context.Context, callID string, outcome decision.Outcome) (*decision.Result, error) {
		gotCallID = callID
		gotOutcome = outcome
		return &decision.Result{
			Record: &decision.Record{
				CallID:   callID,
				ToolName: tool.NameDraftAppeal,
				State:    conversation.ToolStateAccepted,
				Output:   json.RawMessage(`{"callId":"call_d","accepted":true,"finalBody":"Edited letter"}`),
			},
			Applied: true,
		}, nil
	}

	w := deps.do(http.MethodPost, "/v1/tool-calls/call_d/decision", `{"outcome":"accepted","finalBody":"Edited letter"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "call_d", gotCallID)
	assert.Equal(t, conversation.ToolStateAccepted, gotOutcome.Target)
	require.NotNil(t, gotOutcome.FinalBody)
	assert.Equal(t, "Edited letter", *gotOutcome.FinalBody)

	body := decodedBody(t, w.Body.Bytes())
	assert.Equal(t, "call_d", body["callId"])
	assert.Equal(t, "draftAppeal", body["toolName"])
	assert.Equal(t, "accepted", body["state"])
	assert.Equal(t, true, body["applied"])
	output := body["output"].(map[string]any)
	assert.Equal(t, "Edited letter", output["finalBody"])
}

func TestDecisionHandler_AlreadyDecidedIsNotApplied(t *testing.T) {
	deps := newTestDeps()
	deps.decisions.DecideFunc = func(ctx context.Context, callID string, outcome decision.Outcome) (*decision.Result, error) {
		return &decision.Result{
			Record:  &decision.Record{CallID: callID, ToolName: tool.NameSuggestAction, State: conversation.ToolStateApproved},
			Applied: false,
		}, nil
	}

	w := deps.do(http.MethodPost, "/v1/tool-calls/call_s/decision", `{"outcome":"rejected"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodedBody(t, w.Body.Bytes())
	assert.Equal(t, false, body["applied"])
	assert.Equal(t, "approved", body["state"])
}

func TestDecisionHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCalled bool
	}{
		{name: "missing outcome", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "unknown outcome", body: `{"outcome":"maybe"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{"outcome":`, wantStatus: http.StatusBadRequest},
		{
			name:       "unknown call",
			body:       `{"outcome":"approved"}`,
			serviceErr: platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "tool call call_x not found", decision.ErrNotFound, "decision-store-notfound-001"),
			wantStatus: http.StatusNotFound,
			wantCalled: true,
		},
		{
			name:       "outcome outside machine",
			body:       `{"outcome":"accepted"}`,
			serviceErr: platformerrors.NewError(context.Background(), platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "outcome not valid", decision.ErrInvalidTransition, "decision-outcome-invalid-001"),
			wantStatus: http.StatusBadRequest,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			called := false
			deps.decisions.DecideFunc = func(ctx context.Context, callID string, outcome decision.Outcome) (*decision.Result, error) {
				called = true
				return nil, tt.serviceErr
			}

			w := deps.do(http.MethodPost, "/v1/tool-calls/call_x/decision", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			body := decodedBody(t, w.Body.Bytes())
			assert.NotEmpty(t, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDecisionHandler_Get(t *testing.T) {
	deps := newTestDeps()
	proposedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deps.decisions.GetFunc = func(ctx context.Context, callID string) (*decision.Record, error) {
		return &decision.Record{
			CallID:     callID,
			ToolName:   tool.NameUpdateClaimStatus,
			Input:      json.RawMessage(`{"claimId":"CLM-1003","status":"pending","notes":"Appeal filed"}`),
			ClaimID:    "CLM-1003",
			State:      conversation.ToolStateProposed,
			ProposedAt: proposedAt,
		}, nil
	}

	w := deps.do(http.MethodGet, "/v1/tool-calls/call_u", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decodedBody(t, w.Body.Bytes())
	assert.Equal(t, "call_u", body["callId"])
	assert.Equal(t, "proposed", body["state"])
	assert.Equal(t, "CLM-1003", body["claimId"])
	assert.NotContains(t, body, "output")
}
