package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusGranted    Status = "granted"
	StatusWaitlisted Status = "waitlisted"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known booking statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusGranted, StatusWaitlisted, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// Cancellable reports whether a booking in status s may be cancelled by its owner.
func (s Status) Cancellable() bool {
	return s == StatusGranted || s == StatusWaitlisted
}

type PaymentStatus string

const (
	PaymentStatusFree            PaymentStatus = "free"
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusRefundRequested PaymentStatus = "refund_requested"
)

// InitialPaymentStatus returns the payment state for a new booking at the given hourly price.
func InitialPaymentStatus(pricePerHour float64) PaymentStatus {
	if pricePerHour > 0 {
		return PaymentStatusPending
	}
	return PaymentStatusFree
}

// Booking is a request for exclusive use of a resource over [StartTime, EndTime).
// FairnessScore is frozen at submission and never recomputed.
type Booking struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID  `gorm:"not null;index:ix_bookings_resource_window,priority:1;index:ix_bookings_requester,priority:1" json:"tenant_id"`
	ResourceID    snowflake.ID  `gorm:"not null;index:ix_bookings_resource_window,priority:2" json:"resource_id"`
	RequesterID   snowflake.ID  `gorm:"not null;index:ix_bookings_requester,priority:2" json:"requester_id"`
	StartTime     time.Time     `gorm:"not null;index:ix_bookings_resource_window,priority:4" json:"start_time"`
	EndTime       time.Time     `gorm:"not null" json:"end_time"`
	Status        Status        `gorm:"type:varchar(20);not null;index:ix_bookings_resource_window,priority:3" json:"status"`
	FairnessScore float64       `gorm:"not null" json:"fairness_score"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// DurationHours returns the booked interval length in hours.
func (b Booking) DurationHours() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

// Overlaps applies the half-open interval test against [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}
