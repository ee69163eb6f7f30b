package ratelimit

import (
	"context"
	"testing"
)

func TestLocalTokenBucketAllowsWithinBudget(t *testing.T) {
	backend := NewLocalTokenBucketBackend()
	limiter := New(backend, nil, BudgetConfig{RequestsPerSecond: 10, BurstSize: 2})

	ctx := context.Background()
	r1, err := limiter.Allow(ctx, "pool-a")
	if err != nil {
		t.Fatal(err)
	}
	if !r1.Allowed {
		t.Fatal("first submission should be allowed")
	}
	r2, _ := limiter.Allow(ctx, "pool-a")
	if !r2.Allowed {
		t.Fatal("second submission within burst should be allowed")
	}
	r3, _ := limiter.Allow(ctx, "pool-a")
	if r3.Allowed {
		t.Fatal("third submission beyond burst should be denied")
	}
}

func TestFallbackDegradesOnPrimaryError(t *testing.T) {
	fb := NewFallbackBackend(&alwaysErrorBackend{})
	ctx := context.Background()
	allowed, _, err := fb.CheckRateLimit(ctx, "k", 5, 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Fatal("expected local fallback to allow the first request")
	}
	if !fb.Degraded() {
		t.Fatal("expected backend to be marked degraded after primary error")
	}
}

type alwaysErrorBackend struct{}

func (alwaysErrorBackend) CheckRateLimit(ctx context.Context, key string, maxTokens int, refillRate float64, requested int) (bool, int, error) {
	return false, 0, context.DeadlineExceeded
}
