package service

import (
	"context"
	"testing"

	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) promote(t *testing.T) *bookingdomain.Booking {
	t.Helper()
	promoted, err := f.svc.PromoteFor(context.Background(), allocationdomain.PromoteRequest{
		TenantID:     f.tenantID,
		ResourceID:   f.resourceID,
		VacatedStart: at(10, 0),
		VacatedEnd:   at(12, 0),
	})
	require.NoError(t, err)
	return promoted
}

func TestPromoteForPicksHighestFrozenScore(t *testing.T) {
	f := newFixture(t)
	low := f.seedBooking(t, f.node.Generate(), at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.5)
	high := f.seedBooking(t, f.node.Generate(), at(10, 30), at(11, 30), bookingdomain.StatusWaitlisted, 1.8)

	promoted := f.promote(t)
	require.NotNil(t, promoted)
	assert.Equal(t, high.ID, promoted.ID)
	assert.Equal(t, bookingdomain.StatusWaitlisted, f.reload(t, low.ID).Status)
	assert.EqualValues(t, 1, f.countUsageFor(t, high.ID))

	assert.Nil(t, f.promote(t), "remaining candidate conflicts with the promoted grant")
	assert.EqualValues(t, 1, f.countGranted(t))
}

func TestPromoteForSkipsConflictingCandidates(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(t, f.node.Generate(), at(11, 0), at(12, 0), bookingdomain.StatusGranted, 2)
	blocked := f.seedBooking(t, f.node.Generate(), at(10, 30), at(11, 30), bookingdomain.StatusWaitlisted, 1.9)
	fits := f.seedBooking(t, f.node.Generate(), at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.1)

	promoted := f.promote(t)
	require.NotNil(t, promoted)
	assert.Equal(t, fits.ID, promoted.ID)
	assert.Equal(t, bookingdomain.StatusWaitlisted, f.reload(t, blocked.ID).Status)
}

func TestPromoteForTieBreaksByCreation(t *testing.T) {
	f := newFixture(t)
	first := f.seedBooking(t, f.node.Generate(), at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.5)
	f.seedBooking(t, f.node.Generate(), at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.5)

	promoted := f.promote(t)
	require.NotNil(t, promoted)
	assert.Equal(t, first.ID, promoted.ID)
}

func TestPromoteForNoCandidates(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.promote(t))

	_, err := f.svc.PromoteFor(context.Background(), allocationdomain.PromoteRequest{
		TenantID:     f.tenantID,
		ResourceID:   f.resourceID,
		VacatedStart: at(12, 0),
		VacatedEnd:   at(10, 0),
	})
	assert.ErrorIs(t, err, allocationdomain.ErrInvalidRange)
}

func TestPromoteForSkipsCandidateOverCap(t *testing.T) {
	f := newFixture(t)
	busy := f.node.Generate()
	f.seedBooking(t, busy, at(13, 0), at(17, 0), bookingdomain.StatusGranted, 2)
	f.seedBooking(t, busy, at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.9)
	fits := f.seedBooking(t, f.node.Generate(), at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.1)

	promoted := f.promote(t)
	require.NotNil(t, promoted)
	assert.Equal(t, fits.ID, promoted.ID)
}

func TestPromoteForWithoutPolicy(t *testing.T) {
	f := newFixture(t)
	waiting := f.seedBooking(t, f.node.Generate(), at(10, 0), at(11, 0), bookingdomain.StatusWaitlisted, 1.5)

	f.svc.policies = staticPolicies{err: resourcedomain.ErrInactive}
	assert.Nil(t, f.promote(t))
	assert.Equal(t, bookingdomain.StatusWaitlisted, f.reload(t, waiting.ID).Status)
}
