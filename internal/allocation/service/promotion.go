package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	"github.com/smallbiznis/fairshare/internal/events"
	"github.com/smallbiznis/fairshare/internal/observability/metrics"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) PromoteFor(ctx context.Context, req allocationdomain.PromoteRequest) (promoted *bookingdomain.Booking, err error) {
	ctx, span, started := s.startSpan(ctx, "allocation.PromoteFor", req.TenantID)
	defer func() { s.endSpan(span, metrics.OperationPromote, started, err) }()

	if req.TenantID == 0 || req.ResourceID == 0 {
		return nil, allocationdomain.ErrInvalidRequest
	}
	start, end := req.VacatedStart.UTC(), req.VacatedEnd.UTC()
	if !start.Before(end) {
		return nil, allocationdomain.ErrInvalidRange
	}

	policy, err := s.promotionPolicy(ctx, req.TenantID, req.ResourceID)
	if err != nil {
		return nil, err
	}

	err = s.withResource(ctx, req.TenantID, req.ResourceID, func(tx *gorm.DB) error {
		found, err := s.promoteTx(ctx, tx, req.TenantID, req.ResourceID, policy, start, end)
		if err != nil {
			return err
		}
		promoted = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if promoted != nil {
		s.metrics.IncPromotion()
		s.obsMetrics.RecordPromotion(ctx)
	}
	return promoted, nil
}

// promotionPolicy resolves the caps candidates are checked against. Nothing is
// promoted on a resource without a resolvable policy.
func (s *Service) promotionPolicy(ctx context.Context, tenantID, resourceID snowflake.ID) (*resourcedomain.Policy, error) {
	if s.policies == nil {
		return nil, nil
	}
	policy, err := s.policies.GetPolicy(ctx, tenantID, resourceID)
	switch {
	case errors.Is(err, resourcedomain.ErrNotFound), errors.Is(err, resourcedomain.ErrInactive):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return &policy, nil
}

// promoteTx grants the first waitlisted booking, by descending frozen score,
// that no longer conflicts with any grant and still fits the requester's caps.
// At most one booking is promoted.
func (s *Service) promoteTx(ctx context.Context, tx *gorm.DB, tenantID, resourceID snowflake.ID, policy *resourcedomain.Policy, start, end time.Time) (*bookingdomain.Booking, error) {
	if policy == nil {
		s.log.Debug("promotion skipped without policy", zap.String("resource_id", resourceID.String()))
		return nil, nil
	}

	candidates, err := s.bookings.FindWaitlistedOverlapping(ctx, tx, tenantID, resourceID, start, end)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates)

	for i := range candidates {
		candidate := &candidates[i]
		conflicts, err := s.detector.FindOverlaps(ctx, tx, tenantID, resourceID, candidate.StartTime, candidate.EndTime, candidate.ID)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			continue
		}

		limit, err := s.enforcer.CheckLimits(ctx, tx, tenantID, candidate.RequesterID, resourceID, *policy, candidate.StartTime, candidate.EndTime)
		if err != nil {
			return nil, err
		}
		if !limit.Allowed {
			s.log.Debug("promotion candidate over cap",
				zap.String("booking_id", candidate.ID.String()),
				zap.Error(limit.Reason),
			)
			continue
		}

		now := s.clock.Now()
		if err := s.bookings.UpdateStatus(ctx, tx, tenantID, candidate.ID, bookingdomain.StatusGranted, now); err != nil {
			return nil, fmt.Errorf("promote booking: %w", err)
		}
		candidate.Status = bookingdomain.StatusGranted
		candidate.UpdatedAt = now

		// A displaced booking keeps the record from its first grant.
		recorded, err := s.usage.ExistsForBooking(ctx, tx, tenantID, candidate.ID)
		if err != nil {
			return nil, err
		}
		if !recorded {
			if err := s.writeUsage(ctx, tx, candidate, now); err != nil {
				return nil, fmt.Errorf("insert usage record: %w", err)
			}
		}
		if err := s.stage(ctx, tx, events.BookingPromoted, candidate, func(p *events.BookingPayload) {
			p.PreviousStatus = string(bookingdomain.StatusWaitlisted)
		}); err != nil {
			return nil, err
		}

		s.log.Info("booking promoted",
			zap.String("booking_id", candidate.ID.String()),
			zap.String("resource_id", resourceID.String()),
			zap.Float64("fairness_score", candidate.FairnessScore),
		)
		return candidate, nil
	}
	return nil, nil
}

// sortCandidates orders by frozen score descending, then creation time, then id.
func sortCandidates(items []bookingdomain.Booking) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FairnessScore != items[j].FairnessScore {
			return items[i].FairnessScore > items[j].FairnessScore
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
