package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/fairshare/internal/audit/domain"
	auditrepository "github.com/smallbiznis/fairshare/internal/audit/repository"
	auditservice "github.com/smallbiznis/fairshare/internal/audit/service"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	bookingrepository "github.com/smallbiznis/fairshare/internal/booking/repository"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/internal/config"
	"github.com/smallbiznis/fairshare/internal/events"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	usagedomain "github.com/smallbiznis/fairshare/internal/usage/domain"
	usagerepository "github.com/smallbiznis/fairshare/internal/usage/repository"
	"github.com/smallbiznis/fairshare/pkg/db/dbtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Monday.
var testNow = time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	bookings bookingdomain.Repository
	usage    usagedomain.Repository

	tenantID   snowflake.ID
	resourceID snowflake.ID
	policy     resourcedomain.Policy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	db := dbtest.Open(t,
		&bookingdomain.Booking{},
		&usagedomain.UsageRecord{},
		&events.Event{},
		&auditdomain.AuditLog{},
		&resourcedomain.Resource{},
	)
	clk := clock.NewFakeClock(testNow)
	bookings := bookingrepository.Provide()
	usage := usagerepository.Provide()

	svc, err := newService(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clk,
		Config:      config.Config{Allocation: config.AllocationConfig{Timezone: "UTC"}},
		BookingRepo: bookings,
		UsageRepo:   usage,
		Outbox:      events.NewOutbox(node, clk),
		Audit: auditservice.NewService(auditservice.Params{
			DB:    db,
			Log:   zap.NewNop(),
			GenID: node,
			Clock: clk,
			Repo:  auditrepository.Provide(),
		}),
		Locker:   NewLocalLocker(),
		Defaults: config.NewStaticAllocationDefaultsHolder(config.DefaultAllocationDefaults()),
	})
	require.NoError(t, err)

	f := &fixture{
		svc:        svc,
		db:         db,
		node:       node,
		clock:      clk,
		bookings:   bookings,
		usage:      usage,
		tenantID:   node.Generate(),
		resourceID: node.Generate(),
		policy: resourcedomain.Policy{
			MaxHoursPerDay:  4,
			MaxHoursPerWeek: 12,
			CooldownHours:   2,
			WaitlistEnabled: true,
		},
	}
	svc.policies = fixturePolicies{f: f}
	return f
}

// fixturePolicies serves the fixture's current policy.
type fixturePolicies struct {
	f *fixture
}

func (p fixturePolicies) GetPolicy(context.Context, snowflake.ID, snowflake.ID) (resourcedomain.Policy, error) {
	return p.f.policy, nil
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 10, 12, hour, minute, 0, 0, time.UTC)
}

func (f *fixture) submit(t *testing.T, requesterID snowflake.ID, start, end time.Time) (*bookingdomain.Booking, error) {
	t.Helper()
	policy := f.policy
	return f.svc.Submit(context.Background(), allocationdomain.SubmitRequest{
		TenantID:    f.tenantID,
		RequesterID: requesterID,
		ResourceID:  f.resourceID,
		StartTime:   start,
		EndTime:     end,
		Policy:      &policy,
	})
}

func (f *fixture) seedBooking(t *testing.T, requesterID snowflake.ID, start, end time.Time, status bookingdomain.Status, score float64) *bookingdomain.Booking {
	t.Helper()
	booking := &bookingdomain.Booking{
		ID:            f.node.Generate(),
		TenantID:      f.tenantID,
		ResourceID:    f.resourceID,
		RequesterID:   requesterID,
		StartTime:     start,
		EndTime:       end,
		Status:        status,
		FairnessScore: score,
		PaymentStatus: bookingdomain.PaymentStatusFree,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	require.NoError(t, f.bookings.Insert(context.Background(), f.db, booking))
	return booking
}

func (f *fixture) seedUsage(t *testing.T, requesterID snowflake.ID, hours float64, occurredAt time.Time) {
	t.Helper()
	require.NoError(t, f.usage.Insert(context.Background(), f.db, &usagedomain.UsageRecord{
		ID:            f.node.Generate(),
		TenantID:      f.tenantID,
		RequesterID:   requesterID,
		ResourceID:    f.resourceID,
		BookingID:     f.node.Generate(),
		DurationHours: hours,
		OccurredAt:    occurredAt,
		CreatedAt:     occurredAt,
	}))
}

func (f *fixture) reload(t *testing.T, id snowflake.ID) *bookingdomain.Booking {
	t.Helper()
	booking, err := f.bookings.FindByID(context.Background(), f.db, f.tenantID, id)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking
}

func (f *fixture) countEvents(t *testing.T, eventType events.Type) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&events.Event{}).Where("event_type = ?", string(eventType)).Count(&count).Error)
	return count
}

func (f *fixture) countUsageFor(t *testing.T, bookingID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&usagedomain.UsageRecord{}).Where("booking_id = ?", bookingID).Count(&count).Error)
	return count
}

func (f *fixture) countGranted(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&bookingdomain.Booking{}).
		Where("tenant_id = ? AND resource_id = ? AND status = ?", f.tenantID, f.resourceID, bookingdomain.StatusGranted).
		Count(&count).Error)
	return count
}
