package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/opsdesk/internal/config"
)

const keyBillCreate = "bill:create:%s"

// BillCreateLimiter throttles invoice creation per staff member. It is nil
// (and a no-op) when no redis address is configured.
type BillCreateLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewBillCreateLimiter(cfg config.Config) (*BillCreateLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if limitCfg.BillCreateRate <= 0 || limitCfg.BillCreateBurst <= 0 {
		return nil, fmt.Errorf("bill create rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     limitCfg.RedisAddr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &BillCreateLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.BillCreateRate,
		burst:   limitCfg.BillCreateBurst,
	}, nil
}

func (l *BillCreateLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *BillCreateLimiter) Allow(ctx context.Context, staffID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyBillCreate, strings.TrimSpace(staffID)), l.rate, l.burst)
}
