package entities

import (
	"time"

	"gorm.io/datatypes"
)

// DecisionDelivery is an outbox row for one decision webhook notification.
type DecisionDelivery struct {
	ID          uint           `gorm:"primaryKey"`
	CallID      string         `gorm:"size:128;index;not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	Status      string         `gorm:"size:32;not null;index:idx_decision_deliveries_due,priority:1"`
	AvailableAt time.Time      `gorm:"not null;index:idx_decision_deliveries_due,priority:2"`
	Attempts    int            `gorm:"not null;default:0"`
	LastError   *string        `gorm:"type:text"`
	LockedAt    *time.Time
	DeliveredAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for DecisionDelivery.
func (DecisionDelivery) TableName() string {
	return "decision_deliveries"
}
