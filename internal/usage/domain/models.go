// Package domain contains the append-only usage ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord stores the hours consumed by one granted booking.
// OccurredAt is the booking start time.
type UsageRecord struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID `gorm:"not null;index:ix_usage_requester_resource,priority:1" json:"tenant_id"`
	RequesterID   snowflake.ID `gorm:"not null;index:ix_usage_requester_resource,priority:2" json:"requester_id"`
	ResourceID    snowflake.ID `gorm:"not null;index:ix_usage_requester_resource,priority:3" json:"resource_id"`
	BookingID     snowflake.ID `gorm:"not null;index" json:"booking_id"`
	DurationHours float64      `gorm:"not null" json:"duration_hours"`
	OccurredAt    time.Time    `gorm:"not null;index:ix_usage_requester_resource,priority:4" json:"occurred_at"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
