package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/internal/booking/domain"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	if booking == nil {
		return errors.New("booking is required")
	}
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, status domain.Status, updatedAt time.Time) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings SET status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		status, updatedAt, tenantID, id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) UpdatePaymentStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, status domain.PaymentStatus, updatedAt time.Time) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE bookings SET payment_status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		status, updatedAt, tenantID, id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) FindOverlapping(ctx context.Context, db *gorm.DB, tenantID, resourceID snowflake.ID, start, end time.Time, excludeID snowflake.ID) ([]domain.Booking, error) {
	query := db.WithContext(ctx).
		Where("tenant_id = ? AND resource_id = ? AND status = ?", tenantID, resourceID, domain.StatusGranted).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var items []domain.Booking
	if err := query.Order("start_time ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindWaitlistedOverlapping(ctx context.Context, db *gorm.DB, tenantID, resourceID snowflake.ID, start, end time.Time) ([]domain.Booking, error) {
	var items []domain.Booking
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND resource_id = ? AND status = ?", tenantID, resourceID, domain.StatusWaitlisted).
		Where("start_time < ? AND end_time > ?", end, start).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByRequesterInWindow(ctx context.Context, db *gorm.DB, filter domain.RequesterWindowFilter) ([]domain.Booking, error) {
	query := db.WithContext(ctx).
		Where("tenant_id = ? AND requester_id = ?", filter.TenantID, filter.RequesterID).
		Where("start_time >= ? AND start_time < ?", filter.From, filter.To)
	if filter.ResourceID != 0 {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var items []domain.Booking
	if err := query.Order("start_time ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindLatestGrantedBefore(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, now time.Time) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND requester_id = ? AND resource_id = ? AND status = ?",
			tenantID, requesterID, resourceID, domain.StatusGranted).
		Where("end_time <= ?", now).
		Order("end_time DESC, id DESC").
		Limit(1).
		Find(&booking).Error
	if err != nil {
		return nil, err
	}
	if booking.ID == 0 {
		return nil, nil
	}
	return &booking, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Booking, error) {
	query := db.WithContext(ctx).Where("tenant_id = ?", filter.TenantID)
	if filter.ResourceID != 0 {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.RequesterID != 0 {
		query = query.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var items []domain.Booking
	if err := query.Order("start_time ASC, id ASC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
