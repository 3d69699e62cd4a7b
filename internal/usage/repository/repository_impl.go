package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/internal/usage/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.UsageRecord) error {
	if record == nil {
		return errors.New("usage record is required")
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO usage_records (id, tenant_id, requester_id, resource_id, booking_id, duration_hours, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TenantID,
		record.RequesterID,
		record.ResourceID,
		record.BookingID,
		record.DurationHours,
		record.OccurredAt,
		record.CreatedAt,
	).Error
}

func (r *repo) SumDurationSince(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, since time.Time) (float64, error) {
	var total float64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(duration_hours), 0)
		FROM usage_records
		WHERE tenant_id = ? AND requester_id = ? AND resource_id = ? AND occurred_at >= ?`,
		tenantID, requesterID, resourceID, since,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) ExistsForBooking(ctx context.Context, db *gorm.DB, tenantID, bookingID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.UsageRecord{}).
		Where("tenant_id = ? AND booking_id = ?", tenantID, bookingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Summarize(ctx context.Context, db *gorm.DB, filter domain.SummaryFilter) (domain.Summary, error) {
	query := db.WithContext(ctx).
		Model(&domain.UsageRecord{}).
		Select("COALESCE(SUM(duration_hours), 0) AS total_hours, COUNT(*) AS record_count").
		Where("tenant_id = ? AND requester_id = ?", filter.TenantID, filter.RequesterID)
	if filter.ResourceID != 0 {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.Since != nil {
		query = query.Where("occurred_at >= ?", *filter.Since)
	}

	var summary domain.Summary
	if err := query.Scan(&summary).Error; err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.UsageRecord, error) {
	query := db.WithContext(ctx).
		Where("tenant_id = ? AND requester_id = ?", filter.TenantID, filter.RequesterID)
	if filter.ResourceID != 0 {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}
	if filter.AfterID != 0 {
		query = query.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var items []domain.UsageRecord
	if err := query.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
