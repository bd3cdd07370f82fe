package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

// ConversationWriter stores a decided call's output in persisted history.
type ConversationWriter interface {
	ApplyToolOutput(ctx context.Context, conversationID, callID string, state conversation.ToolState, output json.RawMessage) error
}

// Notifier announces committed decisions to external systems.
type Notifier interface {
	NotifyDecision(ctx context.Context, record Record) error
}

// Outcome is a human decision on a gated call.
type Outcome struct {
	Target conversation.ToolState
	// FinalBody is the human-edited letter body; only valid for draftAppeal.
	FinalBody *string
}

// Result is returned by Decide. Applied is false when the call was already terminal.
type Result struct {
	Record  *Record
	Applied bool
}

// Service owns gated call lifecycle transitions.
type Service interface {
	tool.ProposalRecorder
	Decide(ctx context.Context, callID string, outcome Outcome) (*Result, error)
	Get(ctx context.Context, callID string) (*Record, error)
	// Hydrate overlays persisted lifecycle state onto gated parts of the given history.
	Hydrate(ctx context.Context, messages []conversation.Message) ([]conversation.Message, error)
}

// ServiceImpl is the default decision service.
type ServiceImpl struct {
	store     Store
	registry  *tool.Registry
	mutations claim.MutationStore
	writer    ConversationWriter
	notifier  Notifier
	now       func() time.Time
	log       zerolog.Logger
}

// NewService constructs the decision service. writer and notifier may be nil.
func NewService(store Store, registry *tool.Registry, mutations claim.MutationStore, writer ConversationWriter, notifier Notifier, log zerolog.Logger) *ServiceImpl {
	return &ServiceImpl{
		store:     store,
		registry:  registry,
		mutations: mutations,
		writer:    writer,
		notifier:  notifier,
		now:       time.Now,
		log:       log.With().Str("component", "decision-service").Logger(),
	}
}

// Propose records a freshly emitted gated call in the proposed state.
func (s *ServiceImpl) Propose(ctx context.Context, proposal tool.Proposal) error {
	if _, err := MachineFor(proposal.ToolName); err != nil {
		return err
	}
	record := &Record{
		CallID:         proposal.CallID,
		ToolName:       proposal.ToolName,
		Input:          proposal.Input,
		ClaimID:        proposal.ClaimID,
		ConversationID: proposal.ConversationID,
		State:          conversation.ToolStateProposed,
		ProposedAt:     s.now().UTC(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
				fmt.Sprintf("tool call %s was already proposed", proposal.CallID), err, "decision-propose-conflict-001")
		}
		return err
	}
	s.log.Info().
		Str("call_id", record.CallID).
		Str("tool", string(record.ToolName)).
		Str("claim_id", record.ClaimID).
		Msg("gated call proposed")
	return nil
}

// Get returns the lifecycle record of a call.
func (s *ServiceImpl) Get(ctx context.Context, callID string) (*Record, error) {
	record, err := s.store.Get(ctx, callID)
	if err != nil {
		return nil, s.wrapStoreError(ctx, callID, err)
	}
	return record, nil
}

// Decide applies a human decision exactly once. Deciding a terminal call is a no-op.
// The claim mutation runs before the state is committed, so a failed mutation
// leaves the call proposed and the caller may retry.
func (s *ServiceImpl) Decide(ctx context.Context, callID string, outcome Outcome) (*Result, error) {
	release, err := s.store.Lock(ctx, callID)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"tool call is being decided", err, "decision-decide-lock-001")
	}
	defer release()

	record, err := s.store.Get(ctx, callID)
	if err != nil {
		return nil, s.wrapStoreError(ctx, callID, err)
	}

	machine, err := MachineFor(record.ToolName)
	if err != nil {
		return nil, validationError(ctx, err.Error())
	}
	if !machine.Allows(outcome.Target) {
		return nil, validationError(ctx, fmt.Sprintf("outcome %q is not valid for %s; expected %q or %q",
			outcome.Target, record.ToolName, machine.Positive, machine.Negative))
	}
	if outcome.FinalBody != nil && record.ToolName != tool.NameDraftAppeal {
		return nil, validationError(ctx, fmt.Sprintf("finalBody is only accepted for %s", tool.NameDraftAppeal))
	}

	if record.State.IsTerminal() {
		s.log.Info().
			Str("call_id", callID).
			Str("state", string(record.State)).
			Str("requested", string(outcome.Target)).
			Msg("decision ignored, call already decided")
		return &Result{Record: record, Applied: false}, nil
	}

	next, err := machine.TransitionTo(record.State, outcome.Target)
	if err != nil {
		return nil, validationError(ctx, fmt.Sprintf("cannot move %s from %q to %q", callID, record.State, outcome.Target))
	}

	input, err := s.registry.Decode(string(record.ToolName), record.Input)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"stored tool input no longer validates", err, "decision-decide-input-001")
	}

	effect, err := Resolve(callID, input, machine.IsPositive(next), outcome.FinalBody)
	if err != nil {
		return nil, err
	}

	if effect.Change != nil {
		if _, err := s.mutations.ApplyStatus(ctx, *effect.Change); err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "apply claim status")
		}
	}

	decidedAt := s.now().UTC()
	record.State = next
	record.Output = effect.Output
	record.DecidedAt = &decidedAt
	if err := s.store.Save(ctx, record); err != nil {
		return nil, s.wrapStoreError(ctx, callID, err)
	}

	s.log.Info().
		Str("call_id", callID).
		Str("tool", string(record.ToolName)).
		Str("state", string(next)).
		Bool("mutated_claim", effect.Change != nil).
		Msg("decision recorded")

	s.afterCommit(ctx, *record)
	return &Result{Record: record, Applied: true}, nil
}

// afterCommit propagates a committed decision. Failures are logged; the lifecycle store stays authoritative.
func (s *ServiceImpl) afterCommit(ctx context.Context, record Record) {
	if s.writer != nil && record.ConversationID != "" {
		if err := s.writer.ApplyToolOutput(ctx, record.ConversationID, record.CallID, record.State, record.Output); err != nil {
			s.log.Warn().Err(err).Str("call_id", record.CallID).Msg("failed to write decision into conversation")
		}
	}
	if s.notifier != nil {
		go func(ctx context.Context) {
			if err := s.notifier.NotifyDecision(ctx, record); err != nil {
				s.log.Warn().Err(err).Str("call_id", record.CallID).Msg("decision notification failed")
			}
		}(context.WithoutCancel(ctx))
	}
}

// Hydrate returns a copy of messages where every gated part carries the stored
// state, and an output only once that state is terminal. A gated part the store
// does not know is reset to proposed, so client-supplied outcomes never reach the model.
func (s *ServiceImpl) Hydrate(ctx context.Context, messages []conversation.Message) ([]conversation.Message, error) {
	out := make([]conversation.Message, len(messages))
	var callIDs []string
	for i, msg := range messages {
		msg.Parts = append([]conversation.Part(nil), msg.Parts...)
		out[i] = msg
		for _, part := range out[i].ToolParts() {
			if _, err := MachineFor(tool.Name(part.ToolName)); err == nil {
				callIDs = append(callIDs, part.CallID)
			}
		}
	}
	if len(callIDs) == 0 {
		return out, nil
	}

	records, err := s.store.GetMany(ctx, callIDs)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load tool call states")
	}

	for i := range out {
		for _, part := range out[i].ToolParts() {
			if _, err := MachineFor(tool.Name(part.ToolName)); err != nil {
				continue
			}
			record, ok := records[part.CallID]
			if !ok {
				part.State = conversation.ToolStateProposed
				part.Output = nil
				continue
			}
			part.State = record.State
			part.Output = nil
			if record.State.IsTerminal() {
				part.Output = record.Output
			}
		}
	}
	return out, nil
}

func (s *ServiceImpl) wrapStoreError(ctx context.Context, callID string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("tool call %s not found", callID), err, "decision-store-notfound-001")
	}
	return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "lifecycle store")
}

func validationError(ctx context.Context, message string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, ErrInvalidTransition, "decision-outcome-invalid-001")
}

var _ Service = (*ServiceImpl)(nil)
