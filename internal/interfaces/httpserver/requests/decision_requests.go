package requests

// DecisionRequest is a human decision on a gated tool call.
type DecisionRequest struct {
	// Outcome is the target state label, e.g. approved or discarded.
	Outcome   string  `json:"outcome" binding:"required,oneof=approved rejected accepted discarded confirmed cancelled"`
	FinalBody *string `json:"finalBody,omitempty"`
}
