package service

import (
	"context"
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/fairshare/internal/booking/domain"
	resourcedomain "github.com/smallbiznis/fairshare/internal/resource/domain"
	usagedomain "github.com/smallbiznis/fairshare/internal/usage/domain"
	"gorm.io/gorm"
)

const recentUsageWindow = 7 * 24 * time.Hour

// Scorer computes the fairness score of a requester on a resource. Higher is fairer.
type Scorer struct {
	bookings bookingdomain.Repository
	usage    usagedomain.Repository
}

func NewScorer(bookings bookingdomain.Repository, usage usagedomain.Repository) *Scorer {
	return &Scorer{bookings: bookings, usage: usage}
}

func (s *Scorer) Score(ctx context.Context, db *gorm.DB, tenantID, requesterID, resourceID snowflake.ID, policy resourcedomain.Policy, now time.Time) (float64, error) {
	recentHours, err := s.usage.SumDurationSince(ctx, db, tenantID, requesterID, resourceID, now.Add(-recentUsageWindow))
	if err != nil {
		return 0, err
	}

	penalty := 0.0
	last, err := s.bookings.FindLatestGrantedBefore(ctx, db, tenantID, requesterID, resourceID, now)
	if err != nil {
		return 0, err
	}
	if last != nil {
		penalty = cooldownPenalty(now.Sub(last.EndTime).Hours(), policy.CooldownHours)
	}

	return fairnessScore(recentHours, penalty), nil
}

// fairnessScore is 1 + 1/(1+recentHours) - penalty, rounded to three decimals.
// There is no floor.
func fairnessScore(recentHours, penalty float64) float64 {
	if recentHours < 0 {
		recentHours = 0
	}
	return round3(1 + 1/(1+recentHours) - penalty)
}

// cooldownPenalty decays linearly from 1 at the end of the last grant to 0 after cooldownHours.
func cooldownPenalty(hoursSince, cooldownHours float64) float64 {
	if cooldownHours <= 0 || hoursSince >= cooldownHours {
		return 0
	}
	if hoursSince < 0 {
		hoursSince = 0
	}
	return (cooldownHours - hoursSince) / cooldownHours
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
