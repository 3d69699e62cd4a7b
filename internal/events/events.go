package events

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	BookingGranted    Type = "booking.granted"
	BookingWaitlisted Type = "booking.waitlisted"
	BookingRejected   Type = "booking.rejected"
	BookingDisplaced  Type = "booking.displaced"
	BookingCancelled  Type = "booking.cancelled"
	BookingPromoted   Type = "booking.promoted"
	BookingOverridden Type = "booking.overridden"
)

// Event is an outbox row. It is written in the same transaction as the state
// change it describes and published later by the Relay.
type Event struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID   `gorm:"not null;index" json:"tenant_id"`
	EventType     string         `gorm:"type:varchar(64);not null" json:"event_type"`
	AggregateID   snowflake.ID   `gorm:"not null;index" json:"aggregate_id"`
	CorrelationID string         `gorm:"type:varchar(64)" json:"correlation_id"`
	Payload       datatypes.JSON `gorm:"not null" json:"payload"`
	Published     bool           `gorm:"not null;index:ix_booking_events_pending,priority:1" json:"published"`
	Attempts      int            `gorm:"not null" json:"attempts"`
	LastError     *string        `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
}

func (Event) TableName() string { return "booking_events" }

// BookingPayload describes the booking state at the time of the event.
type BookingPayload struct {
	BookingID      string  `json:"booking_id"`
	ResourceID     string  `json:"resource_id"`
	RequesterID    string  `json:"requester_id"`
	Status         string  `json:"status"`
	PreviousStatus string  `json:"previous_status,omitempty"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	FairnessScore  float64 `json:"fairness_score"`
	PaymentStatus  string  `json:"payment_status"`
	DisplacedBy    string  `json:"displaced_by,omitempty"`
	ActorID        string  `json:"actor_id,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Envelope is the wire form handed to publishers.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	TenantID      string          `json:"tenant_id"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}

func (e Event) Envelope() ([]byte, error) {
	return json.Marshal(Envelope{
		ID:            e.ID.String(),
		Type:          e.EventType,
		TenantID:      e.TenantID.String(),
		CorrelationID: e.CorrelationID,
		OccurredAt:    e.CreatedAt.UTC(),
		Data:          json.RawMessage(e.Payload),
	})
}
