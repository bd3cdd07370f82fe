package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/llm"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
	"jan-server/services/claims-api/internal/interfaces/httpserver/routes"
)

type testDeps struct {
	runner        *MockTurnRunner
	decisions     *MockDecisionService
	claims        *MockClaimService
	conversations *MockConversationService
}

func newTestDeps() *testDeps {
	return &testDeps{
		runner:        &MockTurnRunner{},
		decisions:     &MockDecisionService{},
		claims:        &MockClaimService{},
		conversations: &MockConversationService{},
	}
}

func (d *testDeps) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	provider := handlers.NewProvider(d.runner, d.decisions, d.claims, d.conversations, zerolog.Nop())
	routes.NewProvider(provider).Register(engine)
	return engine
}

func (d *testDeps) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	d.router().ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

func TestChatHandler_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unparsable body", body: `{"messages": [`, wantErr: "invalid request body"},
		{name: "missing messages", body: `{}`, wantErr: "messages is required"},
		{name: "messages not a list", body: `{"messages": "hello"}`, wantErr: "messages must be a list"},
		{name: "invalid role", body: `{"messages": [{"role": "tool", "text": "x"}]}`, wantErr: "unsupported role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newTestDeps()
			w := deps.do(http.MethodPost, "/chat", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorBody(t, w), tt.wantErr)
			assert.Empty(t, deps.runner.calls, "model must not be invoked")
		})
	}
}

func TestChatHandler_StreamsEventsInOrder(t *testing.T) {
	deps := newTestDeps()
	deps.runner.RunTurnFunc = func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
		obs := params.Observer
		obs.OnStepStart(1)
		obs.OnToolCall(tool.Call{ID: "call_1", Name: "lookupClaim", Arguments: json.RawMessage(`{"claimId":"CLM-1001"}`)}, tool.ModeServer)
		obs.OnToolResult("call_1", json.RawMessage(`{"claimId":"CLM-1001"}`), false)
		obs.OnStepStart(2)
		obs.OnTextDelta("CO-197 means ")
		obs.OnTextDelta("missing auth.")
		obs.OnToolCall(tool.Call{ID: "call_2", Name: "suggestAction", Arguments: json.RawMessage(`{"claimId":"CLM-1001","action":"appeal"}`)}, tool.ModeGated)
		return &tool.TurnResult{FinishReason: tool.FinishAwaitingDecision, Steps: 2}, nil
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"Look at CLM-1001"}],"claimId":"CLM-1001"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, []string{
		handlers.EventStart,
		handlers.EventStepStart,
		handlers.EventToolCallProposed,
		handlers.EventToolOutputAvailable,
		handlers.EventStepStart,
		handlers.EventTextDelta,
		handlers.EventTextDelta,
		handlers.EventToolCallProposed,
		handlers.EventFinish,
	}, eventNames(events))

	assert.NotEmpty(t, events[0].Data["messageId"])
	assert.Equal(t, "server-executed", events[2].Data["mode"])
	assert.Equal(t, "suggestAction", events[7].Data["toolName"])
	assert.Equal(t, "call_2", events[7].Data["callId"])
	assert.Equal(t, "client-gated", events[7].Data["mode"])
	assert.Equal(t, "awaiting-decision", events[8].Data["finishReason"])

	require.Len(t, deps.runner.calls, 1)
	params := deps.runner.calls[0]
	assert.Equal(t, "Look at CLM-1001", params.UserText)
	assert.Equal(t, "CLM-1001", params.ClaimID)
	assert.Empty(t, params.History)
}

func TestChatHandler_UpstreamFailureBeforeStreamIs502(t *testing.T) {
	deps := newTestDeps()
	deps.runner.RunTurnFunc = func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
		return &tool.TurnResult{}, &tool.UpstreamError{Err: &llm.StatusError{StatusCode: http.StatusUnauthorized, Message: "bad key"}}
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"hi"}]}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "AI service unavailable", errorBody(t, w))
	assert.NotContains(t, w.Body.String(), "event:")
}

func TestChatHandler_UpstreamFailureMidStreamKeepsText(t *testing.T) {
	deps := newTestDeps()
	deps.runner.RunTurnFunc = func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
		params.Observer.OnStepStart(1)
		params.Observer.OnTextDelta("partial ")
		return &tool.TurnResult{Steps: 1}, &tool.UpstreamError{Err: errors.New("connection reset")}
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"hi"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	events := parseSSE(t, w.Body.String())
	assert.Equal(t, []string{
		handlers.EventStart,
		handlers.EventStepStart,
		handlers.EventTextDelta,
		handlers.EventError,
	}, eventNames(events))
	assert.Equal(t, "partial ", events[2].Data["delta"])
	assert.Equal(t, "AI service unavailable", events[3].Data["error"])
}

func TestChatHandler_InternalFailureBeforeStreamIs500(t *testing.T) {
	deps := newTestDeps()
	deps.runner.RunTurnFunc = func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
		return &tool.TurnResult{}, errors.New("lifecycle store down")
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to process chat turn", errorBody(t, w))
}

func TestChatHandler_ToolInputErrorEvent(t *testing.T) {
	deps := newTestDeps()
	deps.runner.RunTurnFunc = func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
		params.Observer.OnStepStart(1)
		params.Observer.OnToolInputError(tool.Call{ID: "call_x", Name: "suggestAction"}, &tool.InputError{Tool: "suggestAction", Reason: "action is required"})
		return &tool.TurnResult{FinishReason: tool.FinishInvalidToolInput, Steps: 1}, nil
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"hi"}]}`)

	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, handlers.EventToolInputError, events[2].Name)
	assert.Equal(t, "call_x", events[2].Data["callId"])
	assert.Contains(t, events[2].Data["error"], "action is required")
	assert.Equal(t, "invalid-tool-input", events[3].Data["finishReason"])
}

func TestChatHandler_HydratesHistoryAndPersistsTurn(t *testing.T) {
	deps := newTestDeps()
	decided := json.RawMessage(`{"callId":"call_s","action":"write_off","approved":true}`)

	var hydrated []conversation.Message
	deps.decisions.HydrateFunc = func(ctx context.Context, messages []conversation.Message) ([]conversation.Message, error) {
		hydrated = messages
		out := append([]conversation.Message(nil), messages...)
		out[1].Parts = []conversation.Part{{
			Type: conversation.PartTypeToolInvocation, ToolName: "suggestAction", CallID: "call_s",
			State: conversation.ToolStateApproved, Output: decided,
		}}
		return out, nil
	}

	var recorded conversation.RecordTurnParams
	deps.conversations.RecordTurnFunc = func(ctx context.Context, params conversation.RecordTurnParams) error {
		recorded = params
		return nil
	}

	deps.runner.RunTurnFunc = func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
		params.Observer.OnStepStart(1)
		params.Observer.OnTextDelta("Done.")
		return &tool.TurnResult{
			FinishReason: tool.FinishStop,
			Steps:        1,
			Assistant: conversation.Message{
				ID:    params.MessageID,
				Role:  conversation.RoleAssistant,
				Parts: []conversation.Part{conversation.TextPart("Done.")},
			},
		}, nil
	}

	body := `{
		"conversationId": "conv-1",
		"claimId": "CLM-1002",
		"messages": [
			{"role": "user", "text": "What should we do?"},
			{"id": "a1", "role": "assistant", "parts": [{"type": "tool-invocation", "toolName": "suggestAction", "callId": "call_s", "state": "proposed"}]},
			{"role": "user", "text": "Thanks, next?"}
		]
	}`
	w := deps.do(http.MethodPost, "/chat", body)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, hydrated, 2, "only prior history is hydrated")
	params := deps.runner.calls[0]
	assert.Equal(t, "Thanks, next?", params.UserText)
	assert.Equal(t, "conv-1", params.ConversationID)
	require.Len(t, params.History, 2)
	assert.Equal(t, conversation.ToolStateApproved, params.History[1].Parts[0].State)
	assert.JSONEq(t, string(decided), string(params.History[1].Parts[0].Output))

	assert.Equal(t, "conv-1", recorded.ConversationID)
	require.NotNil(t, recorded.ClaimID)
	assert.Equal(t, "CLM-1002", *recorded.ClaimID)
	require.NotNil(t, recorded.UserMessage)
	assert.Equal(t, "Thanks, next?", recorded.UserMessage.Text())
	assert.Equal(t, "Done.", recorded.Assistant.Text())

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, "conv-1", events[0].Data["conversationId"])
}

func TestChatHandler_ContinuationHasNoUserText(t *testing.T) {
	deps := newTestDeps()
	var recorded *conversation.RecordTurnParams
	deps.conversations.RecordTurnFunc = func(ctx context.Context, params conversation.RecordTurnParams) error {
		recorded = &params
		return nil
	}

	body := `{"conversationId":"conv-2","messages":[
		{"role":"user","text":"Draft an appeal"},
		{"role":"assistant","parts":[{"type":"tool-invocation","toolName":"draftAppeal","callId":"call_d","state":"accepted"}]}
	]}`
	w := deps.do(http.MethodPost, "/chat", body)
	require.Equal(t, http.StatusOK, w.Code)

	params := deps.runner.calls[0]
	assert.Empty(t, params.UserText)
	assert.Len(t, params.History, 2)

	require.NotNil(t, recorded)
	assert.Nil(t, recorded.UserMessage)

	events := parseSSE(t, w.Body.String())
	assert.Equal(t, []string{handlers.EventStart, handlers.EventFinish}, eventNames(events))
	assert.Equal(t, "stop", events[1].Data["finishReason"])
}

func TestChatHandler_NoPersistenceWithoutConversationID(t *testing.T) {
	deps := newTestDeps()
	persisted := false
	deps.conversations.RecordTurnFunc = func(ctx context.Context, params conversation.RecordTurnParams) error {
		persisted = true
		return nil
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"hi"}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, persisted)
}

func TestChatHandler_HydrateFailure(t *testing.T) {
	deps := newTestDeps()
	deps.decisions.HydrateFunc = func(ctx context.Context, messages []conversation.Message) ([]conversation.Message, error) {
		return nil, errors.New("redis unavailable")
	}

	w := deps.do(http.MethodPost, "/chat", `{"messages":[{"role":"user","text":"hi"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, deps.runner.calls)
}
