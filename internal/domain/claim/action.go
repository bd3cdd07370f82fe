package claim

// Action is a resolution step the assistant may recommend for a claim.
type Action string

const (
	ActionAppeal              Action = "appeal"
	ActionResubmit            Action = "resubmit"
	ActionCallPayer           Action = "call_payer"
	ActionWriteOff            Action = "write_off"
	ActionRequestPeerReview   Action = "request_peer_review"
	ActionSubmitDocumentation Action = "submit_documentation"
	ActionUpdateCOB           Action = "update_cob"
)

// Actions lists every recommendable action.
func Actions() []Action {
	return []Action{
		ActionAppeal,
		ActionResubmit,
		ActionCallPayer,
		ActionWriteOff,
		ActionRequestPeerReview,
		ActionSubmitDocumentation,
		ActionUpdateCOB,
	}
}

// actionToStatus maps an approved action to the claim status it implies.
// Actions without an entry leave the claim untouched.
var actionToStatus = map[Action]Status{
	ActionAppeal:              StatusPending,
	ActionResubmit:            StatusPending,
	ActionWriteOff:            StatusWrittenOff,
	ActionRequestPeerReview:   StatusPending,
	ActionSubmitDocumentation: StatusPending,
	ActionUpdateCOB:           StatusPending,
}

// TargetStatus returns the status an approved action moves the claim to.
func (a Action) TargetStatus() (Status, bool) {
	status, ok := actionToStatus[a]
	return status, ok
}
