package decision

import (
	"encoding/json"
	"fmt"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/tool"
)

// SuggestActionOutput is fed back after a suggestAction decision.
type SuggestActionOutput struct {
	Approved bool         `json:"approved"`
	Action   claim.Action `json:"action,omitempty"`
}

// DraftAppealOutput is fed back after a draftAppeal decision.
type DraftAppealOutput struct {
	Accepted  bool    `json:"accepted"`
	FinalBody *string `json:"finalBody,omitempty"`
}

// UpdateClaimStatusOutput is fed back after an updateClaimStatus decision.
type UpdateClaimStatusOutput struct {
	Confirmed bool         `json:"confirmed"`
	ClaimID   string       `json:"claimId,omitempty"`
	Status    claim.Status `json:"status,omitempty"`
}

// Effect is what a decision produces: the tool result and an optional claim mutation.
type Effect struct {
	Output json.RawMessage
	Change *claim.StatusChange
}

// Resolve computes the effect of deciding input. positive selects the approving outcome;
// finalBody is only honoured for draftAppeal.
func Resolve(callID string, input tool.Input, positive bool, finalBody *string) (Effect, error) {
	var (
		payload any
		change  *claim.StatusChange
	)

	switch in := input.(type) {
	case *tool.SuggestActionInput:
		out := SuggestActionOutput{Approved: positive}
		if positive {
			out.Action = in.Action
			if target, ok := in.Action.TargetStatus(); ok {
				change = &claim.StatusChange{
					ClaimID:      in.ClaimID,
					Status:       target,
					Notes:        "Action approved: " + in.Label,
					SourceCallID: callID,
				}
			}
		}
		payload = out

	case *tool.DraftAppealInput:
		out := DraftAppealOutput{Accepted: positive}
		if positive {
			body := in.Body
			if finalBody != nil {
				body = *finalBody
			}
			out.FinalBody = &body
		}
		payload = out

	case *tool.UpdateClaimStatusInput:
		out := UpdateClaimStatusOutput{Confirmed: positive}
		if positive {
			out.ClaimID = in.ClaimID
			out.Status = in.Status
			change = &claim.StatusChange{
				ClaimID:      in.ClaimID,
				Status:       in.Status,
				Notes:        in.Notes,
				SourceCallID: callID,
			}
		}
		payload = out

	default:
		return Effect{}, fmt.Errorf("%w: %T", ErrNotGated, input)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Effect{}, err
	}
	return Effect{Output: data, Change: change}, nil
}
