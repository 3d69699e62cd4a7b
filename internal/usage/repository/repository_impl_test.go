package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/internal/usage/domain"
	"github.com/smallbiznis/fairshare/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDurationSince(t *testing.T) {
	db := dbtest.Open(t, &domain.UsageRecord{})
	repo := Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	tenantID, requesterID, resourceID := node.Generate(), node.Generate(), node.Generate()
	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

	records := []struct {
		resource snowflake.ID
		hours    float64
		at       time.Time
	}{
		{resourceID, 2, now.Add(-8 * 24 * time.Hour)},
		{resourceID, 1.5, now.Add(-3 * 24 * time.Hour)},
		{resourceID, 1, now.Add(2 * time.Hour)},
		{node.Generate(), 5, now.Add(-time.Hour)},
	}
	for _, rec := range records {
		require.NoError(t, repo.Insert(ctx, db, &domain.UsageRecord{
			ID:            node.Generate(),
			TenantID:      tenantID,
			RequesterID:   requesterID,
			ResourceID:    rec.resource,
			BookingID:     node.Generate(),
			DurationHours: rec.hours,
			OccurredAt:    rec.at,
			CreatedAt:     now,
		}))
	}

	total, err := repo.SumDurationSince(ctx, db, tenantID, requesterID, resourceID, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 2.5, total, 1e-9)

	empty, err := repo.SumDurationSince(ctx, db, tenantID, node.Generate(), resourceID, now.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty)

	summary, err := repo.Summarize(ctx, db, domain.SummaryFilter{TenantID: tenantID, RequesterID: requesterID})
	require.NoError(t, err)
	assert.InDelta(t, 9.5, summary.TotalHours, 1e-9)
	assert.EqualValues(t, 4, summary.RecordCount)
}

func TestExistsForBooking(t *testing.T) {
	db := dbtest.Open(t, &domain.UsageRecord{})
	repo := Provide()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	tenantID, bookingID := node.Generate(), node.Generate()
	now := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)

	exists, err := repo.ExistsForBooking(ctx, db, tenantID, bookingID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Insert(ctx, db, &domain.UsageRecord{
		ID:            node.Generate(),
		TenantID:      tenantID,
		RequesterID:   node.Generate(),
		ResourceID:    node.Generate(),
		BookingID:     bookingID,
		DurationHours: 1,
		OccurredAt:    now,
		CreatedAt:     now,
	}))

	exists, err = repo.ExistsForBooking(ctx, db, tenantID, bookingID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsForBooking(ctx, db, node.Generate(), bookingID)
	require.NoError(t, err)
	assert.False(t, exists, "other tenant")
}
