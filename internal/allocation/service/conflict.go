package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	"gorm.io/gorm"
)

// Detector finds granted bookings that overlap a half-open interval.
type Detector struct {
	bookings bookingdomain.Repository
}

func NewDetector(bookings bookingdomain.Repository) *Detector {
	return &Detector{bookings: bookings}
}

// FindOverlaps returns granted bookings on the resource with start < end and end > start.
// Touching endpoints do not conflict. A non-zero excludeID is left out.
func (d *Detector) FindOverlaps(ctx context.Context, db *gorm.DB, tenantID, resourceID snowflake.ID, start, end time.Time, excludeID snowflake.ID) ([]bookingdomain.Booking, error) {
	return d.bookings.FindOverlapping(ctx, db, tenantID, resourceID, start, end, excludeID)
}
