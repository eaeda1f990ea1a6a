package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyGenerateAccount = "generate:account:%s"

// GenerateLimiter throttles generation requests per account. Disabled
// limiters allow everything, so a missing redis never blocks traffic.
type GenerateLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewGenerateLimiter(cfg config.Config) (*GenerateLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.GenerateRate <= 0 || limitCfg.GenerateBurst <= 0 {
		return nil, errors.New("generate rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &GenerateLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.GenerateRate,
		burst:   limitCfg.GenerateBurst,
	}, nil
}

func (l *GenerateLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *GenerateLimiter) Allow(ctx context.Context, accountID snowflake.ID) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGenerateAccount, accountID), l.rate, l.burst)
}
