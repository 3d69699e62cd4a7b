package ratelimit

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fairshare/internal/config"
)

const keySubmitTenant = "allocation:submit:tenant:%s"

// SubmitLimiter throttles booking submissions per tenant. A nil limiter allows everything.
type SubmitLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewSubmitLimiter(cfg config.Config, client *redis.Client) (*SubmitLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit requires REDIS_ADDR")
	}
	if limitCfg.SubmitRate <= 0 || limitCfg.SubmitBurst <= 0 {
		return nil, errors.New("submit rate limit must be positive")
	}

	return &SubmitLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.SubmitRate,
		burst:  limitCfg.SubmitBurst,
	}, nil
}

func (l *SubmitLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *SubmitLimiter) AllowTenant(ctx context.Context, tenantID snowflake.ID) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keySubmitTenant, tenantID.String()), l.rate, l.burst)
}
