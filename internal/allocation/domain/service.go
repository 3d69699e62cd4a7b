package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
)

// TenantThrottle caps how many granted or waitlisted bookings a requester may
// hold within the week of the candidate's start time, across all resources.
type TenantThrottle struct {
	MaxBookingsPerWeek int
}

type SubmitRequest struct {
	TenantID    snowflake.ID
	RequesterID snowflake.ID
	ResourceID  snowflake.ID
	StartTime   time.Time
	EndTime     time.Time
	// Policy overrides the registered resource policy when set.
	Policy   *resourcedomain.Policy
	Throttle *TenantThrottle
}

type CancelRequest struct {
	TenantID  snowflake.ID
	BookingID snowflake.ID
	ActorID   snowflake.ID
	// Privileged actors may cancel bookings they do not own.
	Privileged bool
}

type OverrideRequest struct {
	TenantID  snowflake.ID
	BookingID snowflake.ID
	ActorID   snowflake.ID
	Status    bookingdomain.Status
	Reason    string
}

type PromoteRequest struct {
	TenantID     snowflake.ID
	ResourceID   snowflake.ID
	VacatedStart time.Time
	VacatedEnd   time.Time
}

type CancelResult struct {
	Booking  *bookingdomain.Booking
	Promoted *bookingdomain.Booking
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*bookingdomain.Booking, error)
	Cancel(ctx context.Context, req CancelRequest) (CancelResult, error)
	AdminOverride(ctx context.Context, req OverrideRequest) (*bookingdomain.Booking, error)
	// PromoteFor grants the best waitlisted booking that now fits the vacated
	// interval. It returns nil when no candidate fits.
	PromoteFor(ctx context.Context, req PromoteRequest) (*bookingdomain.Booking, error)
	// ThrottleForLevel resolves the configured weekly cap for a verification level.
	ThrottleForLevel(level int) *TenantThrottle
}

// PolicyProvider resolves the policy of a registered resource.
type PolicyProvider interface {
	GetPolicy(ctx context.Context, tenantID, resourceID snowflake.ID) (resourcedomain.Policy, error)
}
