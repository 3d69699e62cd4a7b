package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"gorm.io/gorm"
)

func TestClassifyAllocationReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: AllocationReasonDeadlineExceeded},
		{name: "range", err: allocationdomain.ErrInvalidRange, want: AllocationReasonInvalidRange},
		{name: "throttle", err: allocationdomain.ErrThrottleExceeded, want: AllocationReasonThrottleExceeded},
		{
			name: "limit",
			err:  fmt.Errorf("submit: %w", &allocationdomain.LimitError{Window: allocationdomain.LimitWindowDaily, Limit: 4}),
			want: AllocationReasonLimitExceeded,
		},
		{name: "resource_missing", err: resourcedomain.ErrNotFound, want: AllocationReasonNotFound},
		{name: "forbidden", err: allocationdomain.ErrForbidden, want: AllocationReasonForbidden},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: AllocationReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: AllocationReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: AllocationReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: AllocationReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyAllocationReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAllocationMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewAllocationMetrics(registry, Config{ServiceName: "fairshare", Environment: "test"})

	m.IncDecision("granted")
	m.IncDecision("granted")
	m.IncDisplacement()
	m.IncError(OperationSubmit, allocationdomain.ErrThrottleExceeded)
	m.ObserveLockWait(-time.Second)
	m.AddOutboxRelayed("published", 3)
	m.SetOutboxBacklog(7)

	if got := testutil.ToFloat64(m.decisions.WithLabelValues("granted")); got != 2 {
		t.Fatalf("expected 2 granted decisions, got %v", got)
	}
	if got := testutil.ToFloat64(m.displacements); got != 1 {
		t.Fatalf("expected 1 displacement, got %v", got)
	}
	if got := testutil.ToFloat64(m.errors.WithLabelValues(OperationSubmit, AllocationReasonThrottleExceeded)); got != 1 {
		t.Fatalf("expected 1 throttle error, got %v", got)
	}
	if got := testutil.ToFloat64(m.outboxRelayed.WithLabelValues("published")); got != 3 {
		t.Fatalf("expected 3 relayed, got %v", got)
	}
	if got := testutil.ToFloat64(m.outboxBacklog); got != 7 {
		t.Fatalf("expected backlog 7, got %v", got)
	}
}

func TestAllocationMetricsNilSafe(t *testing.T) {
	var m *AllocationMetrics
	m.IncDecision("granted")
	m.IncError(OperationCancel, errors.New("boom"))
	m.ObserveDuration(OperationSubmit, time.Millisecond)
}
