package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/fairshare/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/internal/config"
	"github.com/smallbiznis/fairshare/internal/events"
	"github.com/smallbiznis/fairshare/internal/observability/metrics"
	"github.com/smallbiznis/fairshare/internal/ratelimit"
	usagedomain "github.com/smallbiznis/fairshare/internal/usage/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      config.Config
	BookingRepo bookingdomain.Repository
	UsageRepo   usagedomain.Repository
	Policies    allocationdomain.PolicyProvider
	Outbox      *events.Outbox
	Audit       auditdomain.Service
	Locker      ResourceLocker

	Defaults   *config.AllocationDefaultsHolder `optional:"true"`
	Limiter    *ratelimit.SubmitLimiter         `optional:"true"`
	Metrics    *metrics.AllocationMetrics       `optional:"true"`
	ObsMetrics *metrics.Metrics                 `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID    *snowflake.Node
	clock    clock.Clock
	bookings bookingdomain.Repository
	usage    usagedomain.Repository
	policies allocationdomain.PolicyProvider
	outbox   *events.Outbox
	audit    auditdomain.Service
	locker   ResourceLocker
	defaults *config.AllocationDefaultsHolder
	limiter  *ratelimit.SubmitLimiter

	scorer   *Scorer
	detector *Detector
	enforcer *Enforcer

	metrics    *metrics.AllocationMetrics
	obsMetrics *metrics.Metrics
	tracer     trace.Tracer
}

func NewService(p Params) (allocationdomain.Service, error) {
	return newService(p)
}

func newService(p Params) (*Service, error) {
	loc, err := p.Config.Allocation.Location()
	if err != nil {
		return nil, err
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	locker := p.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	outbox := p.Outbox
	if outbox == nil {
		outbox = events.NewOutbox(p.GenID, clk)
	}

	return &Service{
		db:  p.DB,
		log: p.Log.Named("allocation.service"),

		genID:    p.GenID,
		clock:    clk,
		bookings: p.BookingRepo,
		usage:    p.UsageRepo,
		policies: p.Policies,
		outbox:   outbox,
		audit:    p.Audit,
		locker:   locker,
		defaults: p.Defaults,
		limiter:  p.Limiter,

		scorer:   NewScorer(p.BookingRepo, p.UsageRepo),
		detector: NewDetector(p.BookingRepo),
		enforcer: NewEnforcer(p.BookingRepo, loc),

		metrics:    p.Metrics,
		obsMetrics: p.ObsMetrics,
		tracer:     otel.Tracer("fairshare/allocation"),
	}, nil
}

func (s *Service) ThrottleForLevel(level int) *allocationdomain.TenantThrottle {
	limit, ok := s.defaults.Get().ThrottleForLevel(level)
	if !ok {
		return nil
	}
	return &allocationdomain.TenantThrottle{MaxBookingsPerWeek: limit}
}

func (s *Service) startSpan(ctx context.Context, name string, tenantID snowflake.ID) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
	))
	return ctx, span, time.Now()
}

func (s *Service) endSpan(span trace.Span, operation string, started time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(started))
	if err != nil {
		s.metrics.IncError(operation, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) writeUsage(ctx context.Context, tx *gorm.DB, booking *bookingdomain.Booking, now time.Time) error {
	return s.usage.Insert(ctx, tx, &usagedomain.UsageRecord{
		ID:            s.genID.Generate(),
		TenantID:      booking.TenantID,
		RequesterID:   booking.RequesterID,
		ResourceID:    booking.ResourceID,
		BookingID:     booking.ID,
		DurationHours: booking.DurationHours(),
		OccurredAt:    booking.StartTime,
		CreatedAt:     now,
	})
}

func (s *Service) stage(ctx context.Context, tx *gorm.DB, eventType events.Type, booking *bookingdomain.Booking, fill func(*events.BookingPayload)) error {
	payload := events.BookingPayload{
		BookingID:     booking.ID.String(),
		ResourceID:    booking.ResourceID.String(),
		RequesterID:   booking.RequesterID.String(),
		Status:        string(booking.Status),
		StartTime:     booking.StartTime.UTC().Format(time.RFC3339),
		EndTime:       booking.EndTime.UTC().Format(time.RFC3339),
		FairnessScore: booking.FairnessScore,
		PaymentStatus: string(booking.PaymentStatus),
	}
	if fill != nil {
		fill(&payload)
	}
	return s.outbox.Stage(ctx, tx, booking.TenantID, eventType, booking.ID, payload)
}

func creationEvent(status bookingdomain.Status) events.Type {
	switch status {
	case bookingdomain.StatusGranted:
		return events.BookingGranted
	case bookingdomain.StatusWaitlisted:
		return events.BookingWaitlisted
	default:
		return events.BookingRejected
	}
}

func idPtr(id snowflake.ID) *string {
	v := id.String()
	return &v
}
