package events

import (
	"context"
	"time"

	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/internal/config"
	obsmetrics "github.com/smallbiznis/fairshare/internal/observability/metrics"
	"github.com/smallbiznis/fairshare/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	relayStatusPublished = "published"
	relayStatusFailed    = "failed"
)

type RelayConfig struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

func ProvideRelayConfig(cfg config.Config) RelayConfig {
	interval := time.Duration(cfg.Events.RelayIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	batch := cfg.Events.RelayBatchSize
	if batch <= 0 {
		batch = 100
	}
	attempts := cfg.Events.RelayMaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	return RelayConfig{Interval: interval, BatchSize: batch, MaxAttempts: attempts}
}

type RelayParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Publisher  Publisher
	Config     RelayConfig
	Metrics    *obsmetrics.AllocationMetrics `optional:"true"`
	ObsMetrics *obsmetrics.Metrics           `optional:"true"`
}

// Relay moves staged outbox events to the publisher. Delivery is at least once.
type Relay struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	publisher  Publisher
	cfg        RelayConfig
	metrics    *obsmetrics.AllocationMetrics
	obsMetrics *obsmetrics.Metrics
}

func NewRelay(p RelayParams) *Relay {
	return &Relay{
		db:         p.DB,
		log:        p.Log.Named("events.relay"),
		clock:      p.Clock,
		publisher:  p.Publisher,
		cfg:        p.Config,
		metrics:    p.Metrics,
		obsMetrics: p.ObsMetrics,
	}
}

type RelayResult struct {
	Published int
	Failed    int
}

// RunOnce publishes one batch of pending events in id order.
func (r *Relay) RunOnce(ctx context.Context) (RelayResult, error) {
	var result RelayResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT * FROM booking_events
			WHERE published = ? AND attempts < ?
			ORDER BY id ASC
			LIMIT ?`
		if db.SupportsSkipLocked(tx) {
			query += ` FOR UPDATE SKIP LOCKED`
		}

		var batch []Event
		if err := tx.Raw(query, false, r.cfg.MaxAttempts, r.cfg.BatchSize).Scan(&batch).Error; err != nil {
			return err
		}

		for _, evt := range batch {
			body, err := evt.Envelope()
			if err == nil {
				err = r.publisher.Publish(ctx, evt.EventType, body)
			}
			if err != nil {
				msg := err.Error()
				if updateErr := tx.Exec(
					`UPDATE booking_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
					msg, evt.ID,
				).Error; updateErr != nil {
					return updateErr
				}
				result.Failed++
				r.obsMetrics.RecordEventRelayed(ctx, evt.EventType, relayStatusFailed)
				r.log.Warn("event publish failed",
					zap.String("event_id", evt.ID.String()),
					zap.String("event_type", evt.EventType),
					zap.Int("attempts", evt.Attempts+1),
					zap.Error(err),
				)
				continue
			}

			now := r.clock.Now()
			if err := tx.Exec(
				`UPDATE booking_events SET published = ?, published_at = ?, attempts = attempts + 1, last_error = NULL WHERE id = ?`,
				true, now, evt.ID,
			).Error; err != nil {
				return err
			}
			result.Published++
			r.obsMetrics.RecordEventRelayed(ctx, evt.EventType, relayStatusPublished)
		}
		return nil
	})
	if err != nil {
		return RelayResult{}, err
	}

	r.metrics.AddOutboxRelayed(relayStatusPublished, result.Published)
	r.metrics.AddOutboxRelayed(relayStatusFailed, result.Failed)
	if backlog, err := r.Backlog(ctx); err == nil {
		r.metrics.SetOutboxBacklog(backlog)
	}
	return result, nil
}

// Backlog counts events still eligible for publishing.
func (r *Relay) Backlog(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("published = ? AND attempts < ?", false, r.cfg.MaxAttempts).
		Count(&count).Error
	return count, err
}

func (r *Relay) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		result, err := r.RunOnce(ctx)
		if err != nil {
			r.log.Warn("relay run failed", zap.Error(err))
		} else if result.Published > 0 || result.Failed > 0 {
			r.log.Debug("relay batch done",
				zap.Int("published", result.Published),
				zap.Int("failed", result.Failed),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
