package service

import (
	"context"
	"fmt"
	"time"

	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	"github.com/smallbiznis/fairshare/internal/events"
	"github.com/smallbiznis/fairshare/internal/observability/logger"
	"github.com/smallbiznis/fairshare/internal/observability/metrics"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// decision is the outcome of the grant rule for one candidate.
type decision struct {
	status    bookingdomain.Status
	displaced *bookingdomain.Booking
}

// decide grants when nothing conflicts, displaces a single conflicting grant
// with a strictly lower frozen score, and otherwise waitlists. Without a
// waitlist the candidate is rejected instead.
func decide(score float64, conflicts []bookingdomain.Booking, waitlistEnabled bool) decision {
	switch {
	case len(conflicts) == 0:
		return decision{status: bookingdomain.StatusGranted}
	case len(conflicts) == 1 && score > conflicts[0].FairnessScore:
		displaced := conflicts[0]
		return decision{status: bookingdomain.StatusGranted, displaced: &displaced}
	case waitlistEnabled:
		return decision{status: bookingdomain.StatusWaitlisted}
	default:
		return decision{status: bookingdomain.StatusRejected}
	}
}

func (s *Service) Submit(ctx context.Context, req allocationdomain.SubmitRequest) (booking *bookingdomain.Booking, err error) {
	ctx, span, started := s.startSpan(ctx, "allocation.Submit", req.TenantID)
	defer func() {
		s.endSpan(span, metrics.OperationSubmit, started, err)
		if err != nil {
			s.obsMetrics.RecordSubmission(ctx, metrics.ClassifyAllocationReason(err))
		}
	}()

	if req.TenantID == 0 || req.RequesterID == 0 || req.ResourceID == 0 {
		return nil, allocationdomain.ErrInvalidRequest
	}
	now := s.clock.Now()
	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if !start.Before(end) || start.Before(now) {
		return nil, allocationdomain.ErrInvalidRange
	}

	if err := s.allowSubmit(ctx, req); err != nil {
		return nil, err
	}

	policy, err := s.resolvePolicy(ctx, req)
	if err != nil {
		return nil, err
	}

	var displaced *bookingdomain.Booking
	err = s.withResource(ctx, req.TenantID, req.ResourceID, func(tx *gorm.DB) error {
		created, moved, err := s.submitTx(ctx, tx, req, policy, start, end)
		if err != nil {
			return err
		}
		booking, displaced = created, moved
		return nil
	})
	if err != nil {
		return nil, err
	}

	if displaced != nil {
		s.metrics.IncDisplacement()
		s.log.Info("booking displaced",
			zap.String("booking_id", displaced.ID.String()),
			zap.String("displaced_by", booking.ID.String()),
			zap.Float64("frozen_score", displaced.FairnessScore),
			zap.Float64("candidate_score", booking.FairnessScore),
		)
	}
	s.metrics.IncDecision(string(booking.Status))
	s.obsMetrics.RecordSubmission(ctx, string(booking.Status))
	logger.WithTenant(logger.WithContext(ctx, s.log), req.TenantID.String()).Info("booking decided",
		zap.String("booking_id", booking.ID.String()),
		zap.String("resource_id", booking.ResourceID.String()),
		zap.String("requester_id", booking.RequesterID.String()),
		zap.String("status", string(booking.Status)),
		zap.Float64("fairness_score", booking.FairnessScore),
	)
	return booking, nil
}

func (s *Service) submitTx(ctx context.Context, tx *gorm.DB, req allocationdomain.SubmitRequest, policy resourcedomain.Policy, start, end time.Time) (*bookingdomain.Booking, *bookingdomain.Booking, error) {
	now := s.clock.Now()

	if req.Throttle != nil {
		count, err := s.enforcer.CountActiveInWeek(ctx, tx, req.TenantID, req.RequesterID, start)
		if err != nil {
			return nil, nil, err
		}
		if count >= req.Throttle.MaxBookingsPerWeek {
			return nil, nil, allocationdomain.ErrThrottleExceeded
		}
	}

	limit, err := s.enforcer.CheckLimits(ctx, tx, req.TenantID, req.RequesterID, req.ResourceID, policy, start, end)
	if err != nil {
		return nil, nil, err
	}
	if !limit.Allowed {
		return nil, nil, limit.Reason
	}

	score, err := s.scorer.Score(ctx, tx, req.TenantID, req.RequesterID, req.ResourceID, policy, now)
	if err != nil {
		return nil, nil, err
	}

	conflicts, err := s.detector.FindOverlaps(ctx, tx, req.TenantID, req.ResourceID, start, end, 0)
	if err != nil {
		return nil, nil, err
	}

	d := decide(score, conflicts, policy.WaitlistEnabled)
	booking := &bookingdomain.Booking{
		ID:            s.genID.Generate(),
		TenantID:      req.TenantID,
		ResourceID:    req.ResourceID,
		RequesterID:   req.RequesterID,
		StartTime:     start,
		EndTime:       end,
		Status:        d.status,
		FairnessScore: score,
		PaymentStatus: bookingdomain.InitialPaymentStatus(policy.PricePerHour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if d.displaced != nil {
		if err := s.displace(ctx, tx, d.displaced, booking, now); err != nil {
			return nil, nil, err
		}
	}

	if err := s.bookings.Insert(ctx, tx, booking); err != nil {
		return nil, nil, fmt.Errorf("insert booking: %w", err)
	}
	if booking.Status == bookingdomain.StatusGranted {
		if err := s.writeUsage(ctx, tx, booking, now); err != nil {
			return nil, nil, fmt.Errorf("insert usage record: %w", err)
		}
	}
	if err := s.stage(ctx, tx, creationEvent(booking.Status), booking, nil); err != nil {
		return nil, nil, err
	}
	return booking, d.displaced, nil
}

func (s *Service) displace(ctx context.Context, tx *gorm.DB, displaced, by *bookingdomain.Booking, now time.Time) error {
	if err := s.bookings.UpdateStatus(ctx, tx, displaced.TenantID, displaced.ID, bookingdomain.StatusWaitlisted, now); err != nil {
		return fmt.Errorf("displace booking: %w", err)
	}
	displaced.Status = bookingdomain.StatusWaitlisted
	displaced.UpdatedAt = now

	if err := s.stage(ctx, tx, events.BookingDisplaced, displaced, func(p *events.BookingPayload) {
		p.PreviousStatus = string(bookingdomain.StatusGranted)
		p.DisplacedBy = by.ID.String()
	}); err != nil {
		return err
	}
	return nil
}

func (s *Service) resolvePolicy(ctx context.Context, req allocationdomain.SubmitRequest) (resourcedomain.Policy, error) {
	if req.Policy != nil {
		return req.Policy.Normalize(), nil
	}
	if s.policies == nil {
		return resourcedomain.Policy{}, resourcedomain.ErrNotFound
	}
	return s.policies.GetPolicy(ctx, req.TenantID, req.ResourceID)
}

func (s *Service) allowSubmit(ctx context.Context, req allocationdomain.SubmitRequest) error {
	if !s.limiter.Enabled() {
		return nil
	}
	res, err := s.limiter.AllowTenant(ctx, req.TenantID)
	if err != nil {
		s.log.Warn("submit rate limit unavailable", zap.String("tenant_id", req.TenantID.String()), zap.Error(err))
		return nil
	}
	if !res.Allowed {
		s.obsMetrics.RecordRateLimitDenied(ctx, "submit")
		return allocationdomain.ErrRateLimited
	}
	return nil
}
