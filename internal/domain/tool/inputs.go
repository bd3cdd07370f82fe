package tool

import "jan-server/services/claims-api/internal/domain/claim"

// Input is the closed set of validated tool inputs.
type Input interface {
	ToolName() Name
	ClaimRef() string
}

// LookupClaimInput is the payload of lookupClaim.
type LookupClaimInput struct {
	ClaimID string `json:"claimId" validate:"required" jsonschema_description:"The claim ID, e.g. CLM-1001"`
}

// SuggestActionInput is the payload of suggestAction.
type SuggestActionInput struct {
	ClaimID   string       `json:"claimId" validate:"required" jsonschema_description:"The claim ID to analyze"`
	Action    claim.Action `json:"action" validate:"required,oneof=appeal resubmit call_payer write_off request_peer_review submit_documentation update_cob" jsonschema:"enum=appeal,enum=resubmit,enum=call_payer,enum=write_off,enum=request_peer_review,enum=submit_documentation,enum=update_cob" jsonschema_description:"The recommended action type"`
	Label     string       `json:"label" validate:"required" jsonschema_description:"Short human-readable label for the action, e.g. 'File a formal appeal'"`
	Reasoning string       `json:"reasoning" validate:"required" jsonschema_description:"Clear explanation of why this action is recommended, referencing specific denial codes and clinical context"`
	Urgency   string       `json:"urgency" validate:"required,oneof=high medium low" jsonschema:"enum=high,enum=medium,enum=low" jsonschema_description:"How urgently this action should be taken"`
	Steps     []string     `json:"steps" validate:"required,dive,required" jsonschema_description:"Ordered list of concrete steps the biller should take to execute this action"`
}

// DraftAppealInput is the payload of draftAppeal.
type DraftAppealInput struct {
	ClaimID    string `json:"claimId" validate:"required" jsonschema_description:"The claim ID this letter is for"`
	LetterType string `json:"letterType" validate:"required,oneof=appeal resubmission peer_to_peer_request cob_update retroactive_auth" jsonschema:"enum=appeal,enum=resubmission,enum=peer_to_peer_request,enum=cob_update,enum=retroactive_auth" jsonschema_description:"Type of letter or correspondence to draft"`
	Subject    string `json:"subject" validate:"required" jsonschema_description:"Subject line for the letter"`
	Body       string `json:"body" validate:"required" jsonschema_description:"Full professional letter body. Include: date placeholder, recipient salutation, clear opening statement, clinical/administrative argument, specific evidence cited, requested action, and professional closing. Use \\n for line breaks."`
}

// UpdateClaimStatusInput is the payload of updateClaimStatus.
type UpdateClaimStatusInput struct {
	ClaimID string       `json:"claimId" validate:"required" jsonschema_description:"The claim ID to update"`
	Status  claim.Status `json:"status" validate:"required,oneof=denied rejected pending underpaid resolved written_off" jsonschema:"enum=denied,enum=rejected,enum=pending,enum=underpaid,enum=resolved,enum=written_off" jsonschema_description:"The new status to set"`
	Notes   string       `json:"notes" validate:"required" jsonschema_description:"Brief notes documenting what action was taken and why"`
}

func (*LookupClaimInput) ToolName() Name       { return NameLookupClaim }
func (*SuggestActionInput) ToolName() Name     { return NameSuggestAction }
func (*DraftAppealInput) ToolName() Name       { return NameDraftAppeal }
func (*UpdateClaimStatusInput) ToolName() Name { return NameUpdateClaimStatus }

func (i *LookupClaimInput) ClaimRef() string       { return i.ClaimID }
func (i *SuggestActionInput) ClaimRef() string     { return i.ClaimID }
func (i *DraftAppealInput) ClaimRef() string       { return i.ClaimID }
func (i *UpdateClaimStatusInput) ClaimRef() string { return i.ClaimID }
