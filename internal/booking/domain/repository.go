package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the request ledger. Every method takes the db handle so callers
// can thread a transaction through.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, status Status, updatedAt time.Time) error
	UpdatePaymentStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, status PaymentStatus, updatedAt time.Time) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Booking, error)
	// FindOverlapping returns granted bookings on the resource overlapping [start, end),
	// ordered by start time then id. A non-zero excludeID is skipped.
	FindOverlapping(ctx context.Context, db *gorm.DB, tenantID, resourceID snowflake.ID, start, end time.Time, excludeID snowflake.ID) ([]Booking, error)
	// FindWaitlistedOverlapping returns waitlisted bookings on the resource overlapping [start, end).
	FindWaitlistedOverlapping(ctx context.Context, db *gorm.DB, tenantID, resourceID snowflake.ID, start, end time.Time) ([]Booking, error)
	// FindByRequesterInWindow returns the requester's bookings whose start time lies in [from, to).
	// A zero resourceID matches every resource.
	FindByRequesterInWindow(ctx context.Context, db *gorm.DB, filter RequesterWindowFilter) ([]Booking, error)
	// FindLatestGrantedBefore returns the granted booking on the resource with the
	// latest end time at or before now, or nil.
	FindLatestGrantedBefore(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, now time.Time) (*Booking, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Booking, error)
}

type RequesterWindowFilter struct {
	TenantID    snowflake.ID
	RequesterID snowflake.ID
	ResourceID  snowflake.ID
	From        time.Time
	To          time.Time
	Statuses    []Status
}

type ListFilter struct {
	TenantID    snowflake.ID
	ResourceID  snowflake.ID
	RequesterID snowflake.ID
	Status      Status
	Limit       int
}
