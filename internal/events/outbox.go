package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fairshare/internal/clock"
	"github.com/smallbiznis/fairshare/pkg/telemetry/correlation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox stages events inside the caller's transaction.
type Outbox struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(genID *snowflake.Node, clk clock.Clock) *Outbox {
	if clk == nil {
		clk = clock.New()
	}
	return &Outbox{genID: genID, clock: clk}
}

func (o *Outbox) Stage(ctx context.Context, tx *gorm.DB, tenantID snowflake.ID, eventType Type, aggregateID snowflake.ID, payload any) error {
	if o == nil {
		return errors.New("outbox is not configured")
	}
	if tx == nil {
		return errors.New("outbox requires a transaction")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO booking_events (id, tenant_id, event_type, aggregate_id, correlation_id, payload, published, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.genID.Generate(),
		tenantID,
		string(eventType),
		aggregateID,
		correlation.ExtractCorrelationID(ctx),
		datatypes.JSON(body),
		false,
		0,
		o.clock.Now(),
	).Error
}
