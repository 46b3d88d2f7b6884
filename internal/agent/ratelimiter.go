// internal/agent/ratelimiter.go
package agent

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate limiter defaults.
const (
	DefaultRateQuota  = 30
	DefaultRateWindow = 60 * time.Second
)

// RateLimiterConfig expresses a quota over a rolling window.
type RateLimiterConfig struct {
	Quota  int           `yaml:"quota" json:"quota"`
	Window time.Duration `yaml:"window" json:"window"`
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.Quota <= 0 {
		c.Quota = DefaultRateQuota
	}
	if c.Window <= 0 {
		c.Window = DefaultRateWindow
	}
}

// RollingWindowRateLimiter enforces a request quota measured over a rolling
// time window. Built on a token bucket refilled at quota/window so sustained
// throughput matches the configured quota while short bursts up to the full
// quota are allowed.
type RollingWindowRateLimiter struct {
	limiter *rate.Limiter

	mu      sync.Mutex
	quota   int
	window  time.Duration
	waits   int64
	allowed int64
}

// NewRollingWindowRateLimiter creates a limiter from config. A nil config
// uses the defaults.
func NewRollingWindowRateLimiter(config *RateLimiterConfig) *RollingWindowRateLimiter {
	cfg := RateLimiterConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.applyDefaults()

	perSecond := rate.Limit(float64(cfg.Quota) / cfg.Window.Seconds())
	return &RollingWindowRateLimiter{
		limiter: rate.NewLimiter(perSecond, cfg.Quota),
		quota:   cfg.Quota,
		window:  cfg.Window,
	}
}

// Wait blocks until quota is available or the context is cancelled.
func (rl *RollingWindowRateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.waits++
	rl.mu.Unlock()

	if err := rl.limiter.Wait(ctx); err != nil {
		return err
	}

	rl.mu.Lock()
	rl.allowed++
	rl.mu.Unlock()
	return nil
}

// Allow reports whether a request may proceed right now without blocking.
func (rl *RollingWindowRateLimiter) Allow() bool {
	ok := rl.limiter.Allow()
	if ok {
		rl.mu.Lock()
		rl.allowed++
		rl.mu.Unlock()
	}
	return ok
}

// RateLimiterStats describes limiter configuration and usage.
type RateLimiterStats struct {
	Quota   int           `json:"quota"`
	Window  time.Duration `json:"window"`
	Waits   int64         `json:"waits"`
	Allowed int64         `json:"allowed"`
}

// Stats returns a snapshot of limiter usage.
func (rl *RollingWindowRateLimiter) Stats() RateLimiterStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return RateLimiterStats{
		Quota:   rl.quota,
		Window:  rl.window,
		Waits:   rl.waits,
		Allowed: rl.allowed,
	}
}
