package handlers_test

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/tool"
)

// MockTurnRunner is a func-field TurnRunner.
type MockTurnRunner struct {
	RunTurnFunc func(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error)
	calls       []tool.TurnParams
}

func (m *MockTurnRunner) RunTurn(ctx context.Context, params tool.TurnParams) (*tool.TurnResult, error) {
	m.calls = append(m.calls, params)
	if m.RunTurnFunc != nil {
		return m.RunTurnFunc(ctx, params)
	}
	return &tool.TurnResult{FinishReason: tool.FinishStop, Steps: 1}, nil
}

// MockDecisionService is a func-field decision.Service.
type MockDecisionService struct {
	ProposeFunc func(ctx context.Context, proposal tool.Proposal) error
	DecideFunc  func(ctx context.Context, callID string, outcome decision.Outcome) (*decision.Result, error)
	GetFunc     func(ctx context.Context, callID string) (*decision.Record, error)
	HydrateFunc func(ctx context.Context, messages []conversation.Message) ([]conversation.Message, error)
}

func (m *MockDecisionService) Propose(ctx context.Context, proposal tool.Proposal) error {
	if m.ProposeFunc != nil {
		return m.ProposeFunc(ctx, proposal)
	}
	return nil
}

func (m *MockDecisionService) Decide(ctx context.Context, callID string, outcome decision.Outcome) (*decision.Result, error) {
	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, callID, outcome)
	}
	return nil, nil
}

func (m *MockDecisionService) Get(ctx context.Context, callID string) (*decision.Record, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, callID)
	}
	return nil, nil
}

func (m *MockDecisionService) Hydrate(ctx context.Context, messages []conversation.Message) ([]conversation.Message, error) {
	if m.HydrateFunc != nil {
		return m.HydrateFunc(ctx, messages)
	}
	return messages, nil
}

// MockClaimService is a func-field claim.Service.
type MockClaimService struct {
	GetFunc  func(ctx context.Context, claimID string) (*claim.Claim, error)
	ListFunc func(ctx context.Context, filter claim.Filter) ([]*claim.Claim, error)
}

func (m *MockClaimService) Get(ctx context.Context, claimID string) (*claim.Claim, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, claimID)
	}
	return nil, nil
}

func (m *MockClaimService) List(ctx context.Context, filter claim.Filter) ([]*claim.Claim, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, nil
}

// MockConversationService is a func-field conversation.Service.
type MockConversationService struct {
	GetFunc             func(ctx context.Context, publicID string) (*conversation.Conversation, error)
	RecordTurnFunc      func(ctx context.Context, params conversation.RecordTurnParams) error
	ApplyToolOutputFunc func(ctx context.Context, publicID, callID string, state conversation.ToolState, output json.RawMessage) error
}

func (m *MockConversationService) Get(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, publicID)
	}
	return nil, nil
}

func (m *MockConversationService) RecordTurn(ctx context.Context, params conversation.RecordTurnParams) error {
	if m.RecordTurnFunc != nil {
		return m.RecordTurnFunc(ctx, params)
	}
	return nil
}

func (m *MockConversationService) ApplyToolOutput(ctx context.Context, publicID, callID string, state conversation.ToolState, output json.RawMessage) error {
	if m.ApplyToolOutputFunc != nil {
		return m.ApplyToolOutputFunc(ctx, publicID, callID, state, output)
	}
	return nil
}

type sseEvent struct {
	Name string
	Data map[string]any
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var current sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current = sseEvent{Name: strings.TrimPrefix(line, "event: ")}
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Data))
		case line == "" && current.Name != "":
			events = append(events, current)
			current = sseEvent{}
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func eventNames(events []sseEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}
