package tool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/llm"
)

// scriptedProvider replays one scripted round per CreateChatCompletionStream call.
type scriptedProvider struct {
	mu       sync.Mutex
	rounds   []scriptedRound
	requests []llm.ChatCompletionRequest
}

type scriptedRound struct {
	openErr error
	deltas  []*llm.ChatCompletionDelta
	// recvErr is returned after the deltas are exhausted instead of io.EOF.
	recvErr error
}

func (p *scriptedProvider) CreateChatCompletionStream(_ context.Context, req llm.ChatCompletionRequest) (llm.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.rounds) == 0 {
		return nil, errors.New("no scripted round left")
	}
	round := p.rounds[0]
	p.rounds = p.rounds[1:]
	if round.openErr != nil {
		return nil, round.openErr
	}
	return &scriptedStream{deltas: round.deltas, err: round.recvErr}, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type scriptedStream struct {
	deltas []*llm.ChatCompletionDelta
	err    error
}

func (s *scriptedStream) Recv() (*llm.ChatCompletionDelta, error) {
	if len(s.deltas) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	delta := s.deltas[0]
	s.deltas = s.deltas[1:]
	return delta, nil
}

func (s *scriptedStream) Close() error { return nil }

func textRound(chunks ...string) scriptedRound {
	round := scriptedRound{}
	for _, chunk := range chunks {
		round.deltas = append(round.deltas, &llm.ChatCompletionDelta{
			Choices: []llm.ChatCompletionDeltaChoice{{Delta: llm.ChatMessage{Content: chunk}}},
		})
	}
	round.deltas = append(round.deltas, &llm.ChatCompletionDelta{
		Choices: []llm.ChatCompletionDeltaChoice{{FinishReason: "stop"}},
	})
	return round
}

type scriptedCall struct {
	id   string
	name string
	args string
}

// toolRound streams each call as two fragments: the header with the id, then the arguments by index.
func toolRound(calls ...scriptedCall) scriptedRound {
	round := scriptedRound{}
	for i, call := range calls {
		idx := i
		round.deltas = append(round.deltas,
			&llm.ChatCompletionDelta{Choices: []llm.ChatCompletionDeltaChoice{{Delta: llm.ChatMessage{
				ToolCalls: []llm.ToolCall{{Index: &idx, ID: call.id, Type: "function", Function: llm.ToolFunction{Name: call.name}}},
			}}}},
			&llm.ChatCompletionDelta{Choices: []llm.ChatCompletionDeltaChoice{{Delta: llm.ChatMessage{
				ToolCalls: []llm.ToolCall{{Index: &idx, Function: llm.ToolFunction{Arguments: json.RawMessage(call.args)}}},
			}}}},
		)
	}
	round.deltas = append(round.deltas, &llm.ChatCompletionDelta{
		Choices: []llm.ChatCompletionDeltaChoice{{FinishReason: "tool_calls"}},
	})
	return round
}

type recordingObserver struct {
	events []string
	calls  []Call
	modes  []Mode
	text   strings.Builder
}

func (o *recordingObserver) OnStepStart(step int) {
	o.events = append(o.events, "step-start")
}

func (o *recordingObserver) OnTextDelta(delta string) {
	o.events = append(o.events, "text-delta")
	o.text.WriteString(delta)
}

func (o *recordingObserver) OnToolCall(call Call, mode Mode) {
	o.events = append(o.events, "tool-call:"+call.Name)
	o.calls = append(o.calls, call)
	o.modes = append(o.modes, mode)
}

func (o *recordingObserver) OnToolResult(callID string, _ json.RawMessage, isError bool) {
	if isError {
		o.events = append(o.events, "tool-error:"+callID)
		return
	}
	o.events = append(o.events, "tool-result:"+callID)
}

func (o *recordingObserver) OnToolInputError(call Call, _ error) {
	o.events = append(o.events, "tool-input-error:"+call.Name)
}

type recordingProposals struct {
	proposals []Proposal
	err       error
}

func (r *recordingProposals) Propose(_ context.Context, proposal Proposal) error {
	if r.err != nil {
		return r.err
	}
	r.proposals = append(r.proposals, proposal)
	return nil
}

type fakeClaims struct {
	claims []*claim.Claim
	err    error
}

func (f *fakeClaims) FindByKey(_ context.Context, claimID string) (*claim.Claim, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.claims {
		if strings.EqualFold(c.ClaimID, claimID) {
			return c, nil
		}
	}
	return nil, claim.ErrNotFound
}

func (f *fakeClaims) Keys(context.Context) ([]string, error) {
	keys := make([]string, 0, len(f.claims))
	for _, c := range f.claims {
		keys = append(keys, c.ClaimID)
	}
	return keys, nil
}

func (f *fakeClaims) List(context.Context, claim.Filter) ([]*claim.Claim, error) {
	return f.claims, nil
}

func sampleClaims() *fakeClaims {
	code := "CO-50"
	return &fakeClaims{claims: []*claim.Claim{
		{ClaimID: "CLM-1001", Status: claim.StatusDenied, DenialCode: &code, TotalBilledAmount: 1250},
		{ClaimID: "CLM-1002", Status: claim.StatusUnderpaid, TotalBilledAmount: 480},
	}}
}
