package entities

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"jan-server/services/claims-api/internal/domain/claim"
)

// Claim stores one billing claim. Status, notes and resolution live in columns so they
// can be filtered and updated; everything else is kept verbatim in Document.
type Claim struct {
	ID         uint           `gorm:"primaryKey"`
	ClaimID    string         `gorm:"size:64;uniqueIndex;not null"`
	Status     string         `gorm:"size:32;index;not null"`
	Notes      string         `gorm:"type:text"`
	Document   datatypes.JSON `gorm:"type:jsonb;not null"`
	ResolvedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Claim.
func (Claim) TableName() string {
	return "claims"
}

// NewSchemaClaim converts a domain claim into its row.
func NewSchemaClaim(c *claim.Claim) (*Claim, error) {
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &Claim{
		ClaimID:    c.ClaimID,
		Status:     string(c.Status),
		Notes:      c.Notes,
		Document:   datatypes.JSON(doc),
		ResolvedAt: c.ResolvedAt,
	}, nil
}

// EtoD converts the row back into a domain claim. Column values win over the document.
func (c *Claim) EtoD() (*claim.Claim, error) {
	var out claim.Claim
	if len(c.Document) > 0 {
		if err := json.Unmarshal(c.Document, &out); err != nil {
			return nil, err
		}
	}
	out.ClaimID = c.ClaimID
	out.Status = claim.Status(c.Status)
	out.Notes = c.Notes
	out.ResolvedAt = c.ResolvedAt
	return &out, nil
}

// ClaimStatusChange is the audit trail of confirmed status mutations.
type ClaimStatusChange struct {
	ID           uint      `gorm:"primaryKey"`
	ClaimID      string    `gorm:"size:64;index;not null"`
	FromStatus   string    `gorm:"size:32;not null"`
	ToStatus     string    `gorm:"size:32;not null"`
	Notes        string    `gorm:"type:text"`
	SourceCallID string    `gorm:"size:64;uniqueIndex:idx_claim_status_changes_source_call,where:source_call_id <> ''"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for ClaimStatusChange.
func (ClaimStatusChange) TableName() string {
	return "claim_status_changes"
}
