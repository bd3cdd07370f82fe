package claim

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no claim matches the requested identifier.
var ErrNotFound = errors.New("claim not found")

// Status is the closed set of claim states.
type Status string

const (
	StatusDenied     Status = "denied"
	StatusRejected   Status = "rejected"
	StatusPending    Status = "pending"
	StatusUnderpaid  Status = "underpaid"
	StatusResolved   Status = "resolved"
	StatusWrittenOff Status = "written_off"
)

// Statuses lists every valid status in display order.
func Statuses() []Status {
	return []Status{StatusDenied, StatusRejected, StatusPending, StatusUnderpaid, StatusResolved, StatusWrittenOff}
}

// Valid reports whether s belongs to the enumeration.
func (s Status) Valid() bool {
	for _, candidate := range Statuses() {
		if s == candidate {
			return true
		}
	}
	return false
}

// IsClosed reports whether the claim needs no further work.
func (s Status) IsClosed() bool {
	return s == StatusResolved || s == StatusWrittenOff
}

func (s Status) String() string {
	return string(s)
}

// Claim is a billing claim as surfaced verbatim to the model and the UI.
type Claim struct {
	ClaimID            string        `json:"claimId"`
	Patient            Patient       `json:"patient"`
	Provider           Provider      `json:"provider"`
	Payer              Payer         `json:"payer"`
	DateOfService      string        `json:"dateOfService"`
	DateSubmitted      string        `json:"dateSubmitted"`
	LineItems          []LineItem    `json:"lineItems"`
	TotalBilledAmount  float64       `json:"totalBilledAmount"`
	TotalAllowedAmount *float64      `json:"totalAllowedAmount"`
	TotalPaidAmount    float64       `json:"totalPaidAmount"`
	Status             Status        `json:"status"`
	DenialReason       *string       `json:"denialReason"`
	DenialCode         *string       `json:"denialCode"`
	PayerNotes         *string       `json:"payerNotes"`
	PriorActions       []PriorAction `json:"priorActions"`
	FilingDeadline     *string       `json:"filingDeadline"`
	Notes              string        `json:"notes,omitempty"`
	ResolvedAt         *time.Time    `json:"resolvedAt,omitempty"`
}

type Patient struct {
	Name        string `json:"name"`
	DateOfBirth string `json:"dateOfBirth"`
	MemberID    string `json:"memberId"`
}

type Provider struct {
	Name      string `json:"name"`
	NPI       string `json:"npi"`
	Specialty string `json:"specialty"`
	Facility  string `json:"facility"`
}

type Payer struct {
	Name    string `json:"name"`
	PayerID string `json:"payerId"`
}

type LineItem struct {
	CPTCode       string   `json:"cptCode"`
	Description   string   `json:"description"`
	Modifier      string   `json:"modifier,omitempty"`
	Units         int      `json:"units"`
	BilledAmount  float64  `json:"billedAmount"`
	AllowedAmount *float64 `json:"allowedAmount"`
	PaidAmount    float64  `json:"paidAmount"`
}

type PriorAction struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Outcome     string `json:"outcome"`
}

// StatusChange describes a status mutation requested through a confirmed decision.
type StatusChange struct {
	ClaimID string
	Status  Status
	Notes   string
	// SourceCallID is the gated tool call that authorized the change.
	SourceCallID string
}

// Apply mutates c according to the change. Notes are kept when the change carries none,
// and resolvedAt is stamped when the new status closes the claim.
func (c *Claim) Apply(change StatusChange, now time.Time) {
	c.Status = change.Status
	if change.Notes != "" {
		c.Notes = change.Notes
	}
	if change.Status.IsClosed() {
		resolvedAt := now.UTC()
		c.ResolvedAt = &resolvedAt
	}
}

// Filter narrows claim listings.
type Filter struct {
	Status *Status
}
