package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *UsageRecord) error
	// SumDurationSince totals hours for the requester on the resource with OccurredAt >= since.
	SumDurationSince(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, since time.Time) (float64, error)
	ExistsForBooking(ctx context.Context, db *gorm.DB, tenantID, bookingID snowflake.ID) (bool, error)
	Summarize(ctx context.Context, db *gorm.DB, filter SummaryFilter) (Summary, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]UsageRecord, error)
}

type SummaryFilter struct {
	TenantID    snowflake.ID
	RequesterID snowflake.ID
	ResourceID  snowflake.ID
	Since       *time.Time
}

type Summary struct {
	TotalHours  float64 `json:"total_hours"`
	RecordCount int64   `json:"record_count"`
}

type ListFilter struct {
	TenantID    snowflake.ID
	RequesterID snowflake.ID
	ResourceID  snowflake.ID
	AfterID     snowflake.ID
	Limit       int
}
