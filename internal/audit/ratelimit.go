// Copyright 2025 Hopsworks Community
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket limiting how fast tool calls reach the
// backend platform.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	enabled    bool
}

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	BurstSize      int
}

// NewRateLimiter creates a token bucket limiter, starting full.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	maxTokens := float64(cfg.BurstSize)
	if maxTokens <= 0 {
		maxTokens = 200
	}
	refillRate := cfg.RequestsPerSec
	if refillRate <= 0 {
		refillRate = 100
	}
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
		enabled:    cfg.Enabled,
	}
}

// Allow reports whether one more request fits the budget, consuming a
// token when it does.
func (r *RateLimiter) Allow() bool {
	if r == nil || !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// refill adds tokens based on elapsed time.
func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now

	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// Stats returns a snapshot of the limiter state.
func (r *RateLimiter) Stats() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	return map[string]any{
		"enabled":          r.enabled,
		"available_tokens": r.tokens,
		"max_tokens":       r.maxTokens,
		"refill_rate":      r.refillRate,
	}
}
