package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/llm"
	"jan-server/services/claims-api/internal/domain/retry"
)

// ErrNoChoices is returned when the model stream ends without producing a message.
var ErrNoChoices = errors.New("model stream produced no choices")

// UpstreamError wraps a model-service failure. It is fatal to the current turn only.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "model service: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// FinishReason explains why a turn's stream ended.
type FinishReason string

const (
	FinishStop             FinishReason = "stop"
	FinishAwaitingDecision FinishReason = "awaiting-decision"
	FinishStepLimit        FinishReason = "step-limit"
	FinishInvalidToolInput FinishReason = "invalid-tool-input"
)

// Proposal is a validated gated call awaiting a human decision.
type Proposal struct {
	CallID         string
	ToolName       Name
	Input          json.RawMessage
	ClaimID        string
	ConversationID string
}

// ProposalRecorder persists gated calls the moment they are emitted.
type ProposalRecorder interface {
	Propose(ctx context.Context, proposal Proposal) error
}

// OrchestratorConfig bounds a single turn.
type OrchestratorConfig struct {
	Model       string
	Temperature *float64
	// MaxSteps caps model rounds per turn.
	MaxSteps int
	// MaxInvalidInputs is how many rejected tool inputs a turn tolerates before ending.
	MaxInvalidInputs int
	ToolTimeout      time.Duration
	StreamRetry      retry.Policy
}

// Orchestrator drives one chat turn: model rounds, inline server tools and gated proposals.
type Orchestrator struct {
	provider  llm.Provider
	registry  *Registry
	proposals ProposalRecorder
	cfg       OrchestratorConfig
	tracer    trace.Tracer
	log       zerolog.Logger
}

// NewOrchestrator constructs a turn orchestrator.
func NewOrchestrator(provider llm.Provider, registry *Registry, proposals ProposalRecorder, cfg OrchestratorConfig, log zerolog.Logger) *Orchestrator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 5
	}
	return &Orchestrator{
		provider:  provider,
		registry:  registry,
		proposals: proposals,
		cfg:       cfg,
		tracer:    otel.Tracer("jan-server/claims-api/tool"),
		log:       log.With().Str("component", "tool-orchestrator").Logger(),
	}
}

// TurnParams is the input of RunTurn.
type TurnParams struct {
	// History is every prior message, with gated decisions already hydrated.
	History []conversation.Message
	// UserText is the new user input; empty for a continuation after a decision.
	UserText       string
	ClaimID        string
	ConversationID string
	MessageID      string
	Observer       StreamObserver
}

// TurnResult describes what a turn produced.
type TurnResult struct {
	FinishReason  FinishReason
	Steps         int
	InvalidInputs int
	// Assistant holds the streamed parts in emission order, including partial text on failure.
	Assistant conversation.Message
	Proposals []Call
}

// RunTurn streams one turn. The returned result is non-nil even when err is set.
func (o *Orchestrator) RunTurn(ctx context.Context, params TurnParams) (*TurnResult, error) {
	observer := params.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	messageID := params.MessageID
	if messageID == "" {
		messageID = conversation.NewMessageID()
	}

	ctx, span := o.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("conversation.id", params.ConversationID),
		attribute.String("claim.id", params.ClaimID),
	))
	defer span.End()

	result := &TurnResult{
		Assistant: conversation.Message{ID: messageID, Role: conversation.RoleAssistant},
	}

	messages := make([]llm.ChatMessage, 0, len(params.History)+2)
	messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: SystemPrompt})
	messages = append(messages, conversation.ToChatMessages(params.History)...)
	if params.UserText != "" {
		messages = append(messages, llm.ChatMessage{
			Role:    llm.RoleUser,
			Content: WithClaimContext(params.UserText, params.ClaimID),
		})
	}

	for step := 1; step <= o.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Steps = step

		choice, err := o.runStep(ctx, step, messages, observer, result)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		messages = append(messages, choice.Message)

		if len(choice.Message.ToolCalls) == 0 {
			result.FinishReason = FinishStop
			return o.finish(span, result), nil
		}

		toolMessages, gated, err := o.handleToolCalls(ctx, params, choice.Message.ToolCalls, observer, result)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
		messages = append(messages, toolMessages...)

		if gated {
			result.FinishReason = FinishAwaitingDecision
			return o.finish(span, result), nil
		}
		if result.InvalidInputs > o.cfg.MaxInvalidInputs {
			result.FinishReason = FinishInvalidToolInput
			return o.finish(span, result), nil
		}
	}

	// The last permitted round still asked for tools; the next round is never started.
	result.FinishReason = FinishStepLimit
	return o.finish(span, result), nil
}

func (o *Orchestrator) finish(span trace.Span, result *TurnResult) *TurnResult {
	span.SetAttributes(
		attribute.String("turn.finish_reason", string(result.FinishReason)),
		attribute.Int("turn.steps", result.Steps),
	)
	o.log.Debug().
		Str("finish_reason", string(result.FinishReason)).
		Int("steps", result.Steps).
		Int("proposals", len(result.Proposals)).
		Msg("turn finished")
	return result
}

func (o *Orchestrator) runStep(ctx context.Context, step int, messages []llm.ChatMessage, observer StreamObserver, result *TurnResult) (*llm.ChatCompletionChoice, error) {
	ctx, span := o.tracer.Start(ctx, "chat.step", trace.WithAttributes(attribute.Int("step", step)))
	defer span.End()

	req := llm.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Messages:    messages,
		Tools:       o.registry.ToolDefinitions(),
		Temperature: o.cfg.Temperature,
		Stream:      true,
	}

	stream, err := o.openStream(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	observer.OnStepStart(step)
	result.Assistant.Parts = append(result.Assistant.Parts, conversation.Part{Type: conversation.PartTypeStepStart})

	accumulator := newStreamAccumulator()
	var text strings.Builder
	flushText := func() {
		if text.Len() > 0 {
			result.Assistant.Parts = append(result.Assistant.Parts, conversation.TextPart(text.String()))
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			flushText()
			return nil, err
		}
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			flushText()
			return nil, &UpstreamError{Err: err}
		}
		if chunk := accumulator.Apply(delta); chunk != "" {
			text.WriteString(chunk)
			observer.OnTextDelta(chunk)
		}
	}
	flushText()

	choice := accumulator.Result()
	if choice == nil {
		return nil, &UpstreamError{Err: ErrNoChoices}
	}
	span.SetAttributes(attribute.Int("tool_calls", len(choice.Message.ToolCalls)))
	return choice, nil
}

func (o *Orchestrator) openStream(ctx context.Context, req llm.ChatCompletionRequest) (llm.Stream, error) {
	stream, err := retry.ExecuteWithResult(ctx, o.cfg.StreamRetry, func(ctx context.Context, attempt int) (llm.Stream, error) {
		if attempt > 0 {
			o.log.Warn().Int("attempt", attempt).Msg("retrying model stream")
		}
		stream, err := o.provider.CreateChatCompletionStream(ctx, req)
		if err != nil && !retryableUpstream(err) {
			return nil, retry.Permanent(err)
		}
		return stream, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &UpstreamError{Err: err}
	}
	return stream, nil
}

func retryableUpstream(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

// handleToolCalls processes one round's calls in emission order and returns the
// tool-result messages to append plus whether any gated call was proposed.
func (o *Orchestrator) handleToolCalls(ctx context.Context, params TurnParams, calls []llm.ToolCall, observer StreamObserver, result *TurnResult) ([]llm.ChatMessage, bool, error) {
	var toolMessages []llm.ChatMessage
	gated := false

	for _, raw := range calls {
		call, input, def, err := o.decode(raw)
		if err != nil {
			result.InvalidInputs++
			output := errorOutput(err.Error())
			observer.OnToolInputError(call, err)
			result.Assistant.Parts = append(result.Assistant.Parts, toolPart(call, conversation.ToolStateOutputError, output))
			toolMessages = append(toolMessages, toolResultMessage(call.ID, output))
			o.log.Warn().Err(err).Str("tool", call.Name).Str("call_id", call.ID).Msg("rejected tool input")
			continue
		}

		switch def.Mode {
		case ModeServer:
			observer.OnToolCall(call, ModeServer)
			output, isError := o.resolve(ctx, call, input)
			observer.OnToolResult(call.ID, output, isError)
			state := conversation.ToolStateOutputAvailable
			if isError {
				state = conversation.ToolStateOutputError
			}
			result.Assistant.Parts = append(result.Assistant.Parts, toolPart(call, state, output))
			toolMessages = append(toolMessages, toolResultMessage(call.ID, output))

		case ModeGated:
			proposal := Proposal{
				CallID:         call.ID,
				ToolName:       def.Name,
				Input:          call.Arguments,
				ClaimID:        input.ClaimRef(),
				ConversationID: params.ConversationID,
			}
			if err := o.proposals.Propose(ctx, proposal); err != nil {
				return nil, false, fmt.Errorf("record proposal %s: %w", call.ID, err)
			}
			observer.OnToolCall(call, ModeGated)
			result.Assistant.Parts = append(result.Assistant.Parts, toolPart(call, conversation.ToolStateProposed, nil))
			result.Proposals = append(result.Proposals, call)
			gated = true
		}
	}

	return toolMessages, gated, nil
}

// decode parses, validates and re-encodes a call so downstream consumers only see canonical input.
func (o *Orchestrator) decode(raw llm.ToolCall) (Call, Input, Definition, error) {
	call, err := ParseToolCall(raw)
	if err != nil {
		return call, nil, Definition{}, &InputError{Tool: call.Name, Reason: err.Error(), Err: err}
	}
	def, ok := o.registry.Get(call.Name)
	if !ok {
		return call, nil, Definition{}, &InputError{Tool: call.Name, Reason: fmt.Sprintf("tool %q does not exist", call.Name), Err: ErrUnknownTool}
	}
	input, err := o.registry.Decode(call.Name, call.Arguments)
	if err != nil {
		return call, nil, def, err
	}
	canonical, err := json.Marshal(input)
	if err != nil {
		return call, nil, def, err
	}
	call.Arguments = canonical
	return call, input, def, nil
}

func (o *Orchestrator) resolve(ctx context.Context, call Call, input Input) (json.RawMessage, bool) {
	ctx, span := o.tracer.Start(ctx, "tool.call", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	if o.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ToolTimeout)
		defer cancel()
	}

	output, err := o.registry.Resolve(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Error().Err(err).Str("tool", call.Name).Str("call_id", call.ID).Msg("server tool failed")
		return errorOutput(fmt.Sprintf("%s failed, try again later", call.Name)), true
	}
	return output, false
}

func toolPart(call Call, state conversation.ToolState, output json.RawMessage) conversation.Part {
	return conversation.Part{
		Type:     conversation.PartTypeToolInvocation,
		ToolName: call.Name,
		CallID:   call.ID,
		Input:    call.Arguments,
		State:    state,
		Output:   output,
	}
}

func toolResultMessage(callID string, output json.RawMessage) llm.ChatMessage {
	return llm.ChatMessage{
		Role:       llm.RoleTool,
		Content:    string(output),
		ToolCallID: callID,
	}
}

func errorOutput(message string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": message})
	return data
}

type nopObserver struct{}

func (nopObserver) OnStepStart(int)                            {}
func (nopObserver) OnTextDelta(string)                         {}
func (nopObserver) OnToolCall(Call, Mode)                      {}
func (nopObserver) OnToolResult(string, json.RawMessage, bool) {}
func (nopObserver) OnToolInputError(Call, error)               {}
