package service

import (
	"context"
	"errors"
	"testing"
	"time"

	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	from, to := dayWindow(time.Date(2026, 10, 12, 23, 30, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC), to)

	wib := time.FixedZone("WIB", 7*3600)
	from, to = dayWindow(time.Date(2026, 10, 12, 20, 0, 0, 0, time.UTC), wib)
	assert.Equal(t, time.Date(2026, 10, 12, 17, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 10, 13, 17, 0, 0, 0, time.UTC), to)
}

func TestWeekWindowStartsSunday(t *testing.T) {
	cases := []time.Time{
		time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC),
	}
	for _, tc := range cases {
		from, to := weekWindow(tc, time.UTC)
		assert.Equal(t, time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC), from, tc.String())
		assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), to, tc.String())
	}

	from, _ := weekWindow(time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), from)
}

func TestScenarioADailyLimit(t *testing.T) {
	f := newFixture(t)
	requester := f.node.Generate()

	first, err := f.submit(t, requester, at(9, 0), at(11, 0))
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusGranted, first.Status)

	_, err = f.submit(t, requester, at(12, 0), at(15, 0))
	require.ErrorIs(t, err, allocationdomain.ErrLimitExceeded)

	var limitErr *allocationdomain.LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, allocationdomain.LimitWindowDaily, limitErr.Window)
	assert.Equal(t, 4.0, limitErr.Limit)
	assert.Equal(t, 2.0, limitErr.Used)
	assert.Equal(t, 3.0, limitErr.Requested)

	exact, err := f.submit(t, requester, at(12, 0), at(14, 0))
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusGranted, exact.Status)
}

func TestWeeklyLimitUsesStartWeek(t *testing.T) {
	f := newFixture(t)
	f.policy.MaxHoursPerDay = 8
	f.policy.MaxHoursPerWeek = 5
	f.policy.CooldownHours = 0
	requester := f.node.Generate()

	_, err := f.submit(t, requester, at(9, 0), at(12, 0))
	require.NoError(t, err)

	tuesday := at(9, 0).Add(24 * time.Hour)
	_, err = f.submit(t, requester, tuesday, tuesday.Add(3*time.Hour))
	var limitErr *allocationdomain.LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, allocationdomain.LimitWindowWeekly, limitErr.Window)

	nextSunday := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	booking, err := f.submit(t, requester, nextSunday, nextSunday.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusGranted, booking.Status)
}

func TestLimitsIgnoreWaitlistedAndCancelled(t *testing.T) {
	f := newFixture(t)
	requester := f.node.Generate()
	f.seedBooking(t, requester, at(9, 0), at(12, 0), bookingdomain.StatusWaitlisted, 2)
	f.seedBooking(t, requester, at(13, 0), at(16, 0), bookingdomain.StatusCancelled, 2)

	decision, err := f.svc.enforcer.CheckLimits(context.Background(), f.db, f.tenantID, requester, f.resourceID, f.policy, at(17, 0), at(21, 0))
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Reason)
}

func TestThrottleCountsAcrossResources(t *testing.T) {
	f := newFixture(t)
	requester := f.node.Generate()
	throttle := &allocationdomain.TenantThrottle{MaxBookingsPerWeek: 2}
	policy := f.policy

	submit := func(start time.Time) error {
		_, err := f.svc.Submit(context.Background(), allocationdomain.SubmitRequest{
			TenantID:    f.tenantID,
			RequesterID: requester,
			ResourceID:  f.node.Generate(),
			StartTime:   start,
			EndTime:     start.Add(time.Hour),
			Policy:      &policy,
			Throttle:    throttle,
		})
		return err
	}

	require.NoError(t, submit(at(9, 0)))
	require.NoError(t, submit(at(9, 0).Add(24*time.Hour)))
	assert.ErrorIs(t, submit(at(9, 0).Add(48*time.Hour)), allocationdomain.ErrThrottleExceeded)

	nextWeek := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, submit(nextWeek))
}
