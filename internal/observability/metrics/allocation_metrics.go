package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	allocationdomain "github.com/smallbiznis/fairshare/internal/allocation/domain"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	"gorm.io/gorm"
)

const (
	AllocationReasonInvalidRequest       = "invalid_request"
	AllocationReasonInvalidRange         = "invalid_range"
	AllocationReasonThrottleExceeded     = "throttle_exceeded"
	AllocationReasonLimitExceeded        = "limit_exceeded"
	AllocationReasonNotFound             = "not_found"
	AllocationReasonForbidden            = "forbidden"
	AllocationReasonInvalidTransition    = "invalid_transition"
	AllocationReasonInvalidStatus        = "invalid_status"
	AllocationReasonRateLimited          = "rate_limited"
	AllocationReasonDeadlineExceeded     = "deadline_exceeded"
	AllocationReasonDBLockTimeout        = "db_lock_timeout"
	AllocationReasonSerializationFailure = "serialization_failure"
	AllocationReasonUniqueViolation      = "unique_violation"
	AllocationReasonUnknown              = "unknown"
)

const (
	OperationSubmit   = "submit"
	OperationCancel   = "cancel"
	OperationOverride = "override"
	OperationPromote  = "promote"
)

// AllocationMetrics captures allocation engine health signals.
type AllocationMetrics struct {
	decisions     *prometheus.CounterVec
	displacements prometheus.Counter
	promotions    prometheus.Counter
	errors        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	lockWait      prometheus.Observer
	outboxRelayed *prometheus.CounterVec
	outboxBacklog prometheus.Gauge
}

var (
	allocationMetricsOnce sync.Once
	allocationMetrics     *AllocationMetrics
)

// Allocation returns the singleton allocation metrics registry using config labels.
func Allocation(cfg Config) *AllocationMetrics {
	allocationMetricsOnce.Do(func() {
		allocationMetrics = NewAllocationMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return allocationMetrics
}

func NewAllocationMetrics(registerer prometheus.Registerer, cfg Config) *AllocationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "fairshare"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fairshare_allocation_decisions_total",
		Help:        "Submission decisions by resulting booking status.",
		ConstLabels: constLabels,
	}, []string{"status"})
	displacements := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "fairshare_allocation_displacements_total",
		Help:        "Granted bookings demoted to the waitlist by a higher scored request.",
		ConstLabels: constLabels,
	})
	promotions := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "fairshare_allocation_promotions_total",
		Help:        "Waitlisted bookings promoted after a slot was vacated.",
		ConstLabels: constLabels,
	})
	errorsVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fairshare_allocation_errors_total",
		Help:        "Allocation operation failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "fairshare_allocation_duration_seconds",
		Help:        "Allocation operation latency including the resource critical section.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"operation"})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "fairshare_allocation_lock_wait_seconds",
		Help:        "Time spent waiting for the per-resource lock.",
		Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	})
	outboxRelayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "fairshare_outbox_relayed_total",
		Help:        "Outbox events relayed by result.",
		ConstLabels: constLabels,
	}, []string{"status"})
	outboxBacklog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "fairshare_outbox_backlog",
		Help:        "Unpublished events left after the last relay pass.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		decisions,
		displacements,
		promotions,
		errorsVec,
		duration,
		lockWait,
		outboxRelayed,
		outboxBacklog,
	)

	return &AllocationMetrics{
		decisions:     decisions,
		displacements: displacements,
		promotions:    promotions,
		errors:        errorsVec,
		duration:      duration,
		lockWait:      lockWait,
		outboxRelayed: outboxRelayed,
		outboxBacklog: outboxBacklog,
	}
}

// IncDecision counts a submission that produced a booking with the given status.
func (m *AllocationMetrics) IncDecision(status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status).Inc()
}

func (m *AllocationMetrics) IncDisplacement() {
	if m == nil {
		return
	}
	m.displacements.Inc()
}

func (m *AllocationMetrics) IncPromotion() {
	if m == nil {
		return
	}
	m.promotions.Inc()
}

// IncError counts a failed operation with classification.
func (m *AllocationMetrics) IncError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(operation, ClassifyAllocationReason(err)).Inc()
}

func (m *AllocationMetrics) ObserveDuration(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *AllocationMetrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	m.lockWait.Observe(d.Seconds())
}

func (m *AllocationMetrics) AddOutboxRelayed(status string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.outboxRelayed.WithLabelValues(status).Add(float64(count))
}

func (m *AllocationMetrics) SetOutboxBacklog(value int64) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(float64(value))
}

// ClassifyAllocationReason maps an error to a bounded metric label.
func ClassifyAllocationReason(err error) string {
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return AllocationReasonUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return AllocationReasonDeadlineExceeded
	case errors.Is(err, allocationdomain.ErrInvalidRequest):
		return AllocationReasonInvalidRequest
	case errors.Is(err, allocationdomain.ErrInvalidRange):
		return AllocationReasonInvalidRange
	case errors.Is(err, allocationdomain.ErrThrottleExceeded):
		return AllocationReasonThrottleExceeded
	case errors.Is(err, allocationdomain.ErrLimitExceeded):
		return AllocationReasonLimitExceeded
	case errors.Is(err, allocationdomain.ErrNotFound),
		errors.Is(err, resourcedomain.ErrNotFound),
		errors.Is(err, resourcedomain.ErrInactive):
		return AllocationReasonNotFound
	case errors.Is(err, allocationdomain.ErrForbidden):
		return AllocationReasonForbidden
	case errors.Is(err, allocationdomain.ErrInvalidTransition):
		return AllocationReasonInvalidTransition
	case errors.Is(err, allocationdomain.ErrInvalidStatus):
		return AllocationReasonInvalidStatus
	case errors.Is(err, allocationdomain.ErrRateLimited):
		return AllocationReasonRateLimited
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return AllocationReasonUniqueViolation
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case "55P03":
			return AllocationReasonDBLockTimeout
		case "40001", "40P01":
			return AllocationReasonSerializationFailure
		case "23505":
			return AllocationReasonUniqueViolation
		}
	}
	return AllocationReasonUnknown
}
