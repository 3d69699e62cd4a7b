package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"gorm.io/gorm"
)

// Enforcer applies the daily and weekly hour caps. Windows are taken from the
// candidate start in loc and only granted bookings count.
type Enforcer struct {
	bookings bookingdomain.Repository
	loc      *time.Location
}

func NewEnforcer(bookings bookingdomain.Repository, loc *time.Location) *Enforcer {
	if loc == nil {
		loc = time.UTC
	}
	return &Enforcer{bookings: bookings, loc: loc}
}

func (e *Enforcer) CheckLimits(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, policy resourcedomain.Policy, start, end time.Time) (allocationdomain.LimitDecision, error) {
	duration := end.Sub(start).Hours()

	dayFrom, dayTo := dayWindow(start, e.loc)
	daySum, err := e.grantedHours(ctx, db, tenantID, requesterID, resourceID, dayFrom, dayTo)
	if err != nil {
		return allocationdomain.LimitDecision{}, err
	}
	if daySum+duration > policy.MaxHoursPerDay {
		return allocationdomain.Denied(&allocationdomain.LimitError{
			Window:    allocationdomain.LimitWindowDaily,
			Limit:     policy.MaxHoursPerDay,
			Used:      daySum,
			Requested: duration,
		}), nil
	}

	weekFrom, weekTo := weekWindow(start, e.loc)
	weekSum, err := e.grantedHours(ctx, db, tenantID, requesterID, resourceID, weekFrom, weekTo)
	if err != nil {
		return allocationdomain.LimitDecision{}, err
	}
	if weekSum+duration > policy.MaxHoursPerWeek {
		return allocationdomain.Denied(&allocationdomain.LimitError{
			Window:    allocationdomain.LimitWindowWeekly,
			Limit:     policy.MaxHoursPerWeek,
			Used:      weekSum,
			Requested: duration,
		}), nil
	}

	return allocationdomain.Allowed(), nil
}

// CountActiveInWeek counts granted and waitlisted bookings of the requester on
// any resource starting in the week that contains start.
func (e *Enforcer) CountActiveInWeek(ctx context.Context, db *gorm.DB, tenantID, requesterID snowflake.ID, start time.Time) (int, error) {
	from, to := weekWindow(start, e.loc)
	items, err := e.bookings.FindByRequesterInWindow(ctx, db, bookingdomain.RequesterWindowFilter{
		TenantID:    tenantID,
		RequesterID: requesterID,
		From:        from,
		To:          to,
		Statuses:    []bookingdomain.Status{bookingdomain.StatusGranted, bookingdomain.StatusWaitlisted},
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (e *Enforcer) grantedHours(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, from, to time.Time) (float64, error) {
	items, err := e.bookings.FindByRequesterInWindow(ctx, db, bookingdomain.RequesterWindowFilter{
		TenantID:    tenantID,
		RequesterID: requesterID,
		ResourceID:  resourceID,
		From:        from,
		To:          to,
		Statuses:    []bookingdomain.Status{bookingdomain.StatusGranted},
	})
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, item := range items {
		total += item.DurationHours()
	}
	return total, nil
}

// dayWindow returns local midnight to midnight around t, in UTC.
func dayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	to := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC()
}

// weekWindow returns the Sunday-start week around t, in UTC.
func weekWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	day := local.Day() - int(local.Weekday())
	from := time.Date(local.Year(), local.Month(), day, 0, 0, 0, 0, loc)
	to := time.Date(local.Year(), local.Month(), day+7, 0, 0, 0, 0, loc)
	return from.UTC(), to.UTC()
}
