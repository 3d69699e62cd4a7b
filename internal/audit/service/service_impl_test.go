package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/fairshare/internal/audit/domain"
	"github.com/smallbiznis/fairshare/internal/audit/repository"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/pkg/db/dbtest"
	"github.com/smallbiznis/fairshare/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuditService(t *testing.T) (auditdomain.Service, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	db := dbtest.Open(t, &auditdomain.AuditLog{})
	clk := clock.NewFakeClock(time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, db, node, clk
}

func strPtr(v string) *string { return &v }

func TestAuditLogWritesInsideTransaction(t *testing.T) {
	svc, db, node, _ := setupAuditService(t)
	tenantID := node.Generate()
	ctx := correlation.ContextWithCorrelationID(context.Background(), "cid-1")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.AuditLog(ctx, tx, tenantID, string(auditdomain.ActorTypeAdmin), strPtr("42"),
			auditdomain.ActionBookingAdminOverride, auditdomain.TargetTypeBooking, strPtr("99"),
			map[string]any{"old_status": "waitlisted", "new_status": "granted"})
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TenantID: tenantID.String()})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, auditdomain.ActionBookingAdminOverride, entry.Action)
	assert.Equal(t, "99", *entry.TargetID)
	assert.Equal(t, "granted", entry.Metadata["new_status"])
	assert.Equal(t, "cid-1", entry.Metadata["correlation_id"])
}

func TestAuditLogRolledBackWithTransaction(t *testing.T) {
	svc, db, node, _ := setupAuditService(t)
	tenantID := node.Generate()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.AuditLog(context.Background(), tx, tenantID, "", nil,
			auditdomain.ActionBookingCancel, auditdomain.TargetTypeBooking, strPtr("1"), nil))
		return gorm.ErrInvalidTransaction
	})

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TenantID: tenantID.String()})
	require.NoError(t, err)
	assert.Empty(t, resp.AuditLogs)
}

func TestAuditLogValidation(t *testing.T) {
	svc, _, node, _ := setupAuditService(t)

	err := svc.AuditLog(context.Background(), nil, node.Generate(), "", nil, " ", "", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)

	err = svc.AuditLog(context.Background(), nil, 0, "", nil, auditdomain.ActionBookingCancel, "", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTenant)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _, node, clk := setupAuditService(t)
	tenantID := node.Generate()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(context.Background(), nil, tenantID, "", nil,
			auditdomain.ActionBookingCancel, auditdomain.TargetTypeBooking, nil, nil))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TenantID: tenantID.String(), PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	require.True(t, first.HasMore)
	assert.True(t, first.AuditLogs[0].CreatedAt.After(first.AuditLogs[1].CreatedAt))

	second, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		TenantID:  tenantID.String(),
		PageSize:  2,
		PageToken: first.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{TenantID: "nope"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTenant)
}
