// Package ratelimit implements an optional admission-control token
// bucket for pool work: when multiple OS processes share one logical task
// budget, the CLI's pool run function (cmd/hemlock) checks this limiter
// before each work item's function body runs, and an item over budget
// fails with TaskError; it does not wait for tokens. Pool.Submit itself
// does not consult the limiter. It is
// disabled by default — the baseline ThreadPool contract has no
// admission control of its own.
package ratelimit

import (
	"context"
	"fmt"
)

// Backend is implemented by RedisBackend and FallbackBackend; it
// performs one atomic check-and-consume against a token bucket.
// (redis_backend.go defines the Lua script the Redis-backed
// implementation runs.)
type Backend interface {
	CheckRateLimit(ctx context.Context, key string, maxTokens int, refillRate float64, requested int) (allowed bool, remaining int, err error)
}

// BudgetConfig configures a pool submission budget.
type BudgetConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// Limiter checks whether a task submission to a named pool is within
// its configured budget.
type Limiter struct {
	backend Backend
	budgets map[string]BudgetConfig
	fallback BudgetConfig
}

// New creates a Limiter over the given Backend (typically a
// FallbackBackend wrapping Redis).
func New(backend Backend, budgets map[string]BudgetConfig, fallback BudgetConfig) *Limiter {
	if budgets == nil {
		budgets = make(map[string]BudgetConfig)
	}
	return &Limiter{backend: backend, budgets: budgets, fallback: fallback}
}

// Result reports the outcome of an admission check.
type Result struct {
	Allowed   bool
	Remaining int
}

// Allow checks whether one more task submission to poolKey is within
// budget.
func (l *Limiter) Allow(ctx context.Context, poolKey string) (Result, error) {
	cfg, ok := l.budgets[poolKey]
	if !ok {
		cfg = l.fallback
	}
	allowed, remaining, err := l.backend.CheckRateLimit(ctx, SubmissionKey(poolKey), cfg.BurstSize, cfg.RequestsPerSecond, 1)
	if err != nil {
		return Result{}, fmt.Errorf("pool submission rate check: %w", err)
	}
	return Result{Allowed: allowed, Remaining: remaining}, nil
}

// SubmissionKey returns the backend key for a pool's submission budget.
func SubmissionKey(poolKey string) string {
	return "hemlock:pool:" + poolKey + ":submit"
}
