package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/fairshare/internal/audit/domain"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	"github.com/smallbiznis/fairshare/internal/events"
	"github.com/smallbiznis/fairshare/internal/observability/logger"
	"github.com/smallbiznis/fairshare/internal/observability/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cancel moves a granted or waitlisted booking to cancelled. A vacated grant is
// offered to the waitlist inside the same critical section. Usage records are kept.
func (s *Service) Cancel(ctx context.Context, req allocationdomain.CancelRequest) (result allocationdomain.CancelResult, err error) {
	ctx, span, started := s.startSpan(ctx, "allocation.Cancel", req.TenantID)
	defer func() { s.endSpan(span, metrics.OperationCancel, started, err) }()

	if req.TenantID == 0 || req.BookingID == 0 || req.ActorID == 0 {
		return result, allocationdomain.ErrInvalidRequest
	}
	current, err := s.lookup(ctx, req.TenantID, req.BookingID)
	if err != nil {
		return result, err
	}

	policy, err := s.promotionPolicy(ctx, req.TenantID, current.ResourceID)
	if err != nil {
		return result, err
	}

	var cancelledFrom bookingdomain.Status
	err = s.withResource(ctx, req.TenantID, current.ResourceID, func(tx *gorm.DB) error {
		booking, err := s.bookings.FindByID(ctx, tx, req.TenantID, req.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return allocationdomain.ErrNotFound
		}
		if !req.Privileged && booking.RequesterID != req.ActorID {
			return allocationdomain.ErrForbidden
		}
		if !booking.Status.Cancellable() {
			return allocationdomain.ErrInvalidTransition
		}

		now := s.clock.Now()
		previous := booking.Status
		if err := s.bookings.UpdateStatus(ctx, tx, req.TenantID, booking.ID, bookingdomain.StatusCancelled, now); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		booking.Status = bookingdomain.StatusCancelled
		booking.UpdatedAt = now

		if booking.PaymentStatus == bookingdomain.PaymentStatusPaid {
			if err := s.bookings.UpdatePaymentStatus(ctx, tx, req.TenantID, booking.ID, bookingdomain.PaymentStatusRefundRequested, now); err != nil {
				return fmt.Errorf("flag refund: %w", err)
			}
			booking.PaymentStatus = bookingdomain.PaymentStatusRefundRequested
		}

		if err := s.stage(ctx, tx, events.BookingCancelled, booking, func(p *events.BookingPayload) {
			p.PreviousStatus = string(previous)
			p.ActorID = req.ActorID.String()
		}); err != nil {
			return err
		}

		var promoted *bookingdomain.Booking
		if previous == bookingdomain.StatusGranted {
			promoted, err = s.promoteTx(ctx, tx, req.TenantID, booking.ResourceID, policy, booking.StartTime, booking.EndTime)
			if err != nil {
				return err
			}
		}

		metadata := map[string]any{
			"booking_id":     booking.ID.String(),
			"old_status":     string(previous),
			"payment_status": string(booking.PaymentStatus),
		}
		if promoted != nil {
			metadata["promoted_id"] = promoted.ID.String()
		}
		actorType := auditdomain.ActorTypeUser
		if req.Privileged {
			actorType = auditdomain.ActorTypeAdmin
		}
		if err := s.writeAudit(ctx, tx, req.TenantID, actorType, req.ActorID, auditdomain.ActionBookingCancel, booking.ID, metadata); err != nil {
			return err
		}

		result = allocationdomain.CancelResult{Booking: booking, Promoted: promoted}
		cancelledFrom = previous
		return nil
	})
	if err != nil {
		return allocationdomain.CancelResult{}, err
	}
	s.obsMetrics.RecordCancellation(ctx, string(cancelledFrom))
	if result.Promoted != nil {
		s.metrics.IncPromotion()
		s.obsMetrics.RecordPromotion(ctx)
	}

	fields := []zap.Field{
		zap.String("booking_id", result.Booking.ID.String()),
	}
	if result.Promoted != nil {
		fields = append(fields, zap.String("promoted_id", result.Promoted.ID.String()))
	}
	s.actorLog(ctx, req.TenantID, req.ActorID).Info("booking cancelled", fields...)
	return result, nil
}

// AdminOverride writes status directly. It bypasses every gate and never promotes.
func (s *Service) AdminOverride(ctx context.Context, req allocationdomain.OverrideRequest) (booking *bookingdomain.Booking, err error) {
	ctx, span, started := s.startSpan(ctx, "allocation.AdminOverride", req.TenantID)
	defer func() { s.endSpan(span, metrics.OperationOverride, started, err) }()

	if req.TenantID == 0 || req.BookingID == 0 || req.ActorID == 0 {
		return nil, allocationdomain.ErrInvalidRequest
	}
	if !req.Status.Valid() {
		return nil, allocationdomain.ErrInvalidStatus
	}
	current, err := s.lookup(ctx, req.TenantID, req.BookingID)
	if err != nil {
		return nil, err
	}

	err = s.withResource(ctx, req.TenantID, current.ResourceID, func(tx *gorm.DB) error {
		found, err := s.bookings.FindByID(ctx, tx, req.TenantID, req.BookingID)
		if err != nil {
			return err
		}
		if found == nil {
			return allocationdomain.ErrNotFound
		}

		now := s.clock.Now()
		previous := found.Status
		if err := s.bookings.UpdateStatus(ctx, tx, req.TenantID, found.ID, req.Status, now); err != nil {
			return fmt.Errorf("override booking: %w", err)
		}
		found.Status = req.Status
		found.UpdatedAt = now

		reason := strings.TrimSpace(req.Reason)
		if err := s.stage(ctx, tx, events.BookingOverridden, found, func(p *events.BookingPayload) {
			p.PreviousStatus = string(previous)
			p.ActorID = req.ActorID.String()
			p.Reason = reason
		}); err != nil {
			return err
		}

		metadata := map[string]any{
			"booking_id": found.ID.String(),
			"old_status": string(previous),
			"new_status": string(req.Status),
		}
		if reason != "" {
			metadata["reason"] = reason
		}
		if err := s.writeAudit(ctx, tx, req.TenantID, auditdomain.ActorTypeAdmin, req.ActorID, auditdomain.ActionBookingAdminOverride, found.ID, metadata); err != nil {
			return err
		}

		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.actorLog(ctx, req.TenantID, req.ActorID).Info("booking overridden",
		zap.String("booking_id", booking.ID.String()),
		zap.String("status", string(booking.Status)),
	)
	return booking, nil
}

func (s *Service) actorLog(ctx context.Context, tenantID, actorID snowflake.ID) *zap.Logger {
	return logger.WithActor(logger.WithTenant(logger.WithContext(ctx, s.log), tenantID.String()), actorID.String())
}

func (s *Service) lookup(ctx context.Context, tenantID, bookingID snowflake.ID) (*bookingdomain.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, s.db, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, allocationdomain.ErrNotFound
	}
	return booking, nil
}

func (s *Service) writeAudit(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, actorType auditdomain.ActorType, actorID snowflake.ID, action string, bookingID snowflake.ID, metadata map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.AuditLog(ctx, tx, tenantID, string(actorType), idPtr(actorID), action, auditdomain.TargetTypeBooking, idPtr(bookingID), metadata); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

