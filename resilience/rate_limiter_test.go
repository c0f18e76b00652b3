package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_DisabledIsNil(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})
	if rl != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Errorf("nil limiter must not block: %v", err)
	}
}

func TestRateLimiter_BurstThenWait(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 2})
	rl.now = func() time.Time { return now }
	rl.lastRefill = now

	if w := rl.reserve(); w != 0 {
		t.Errorf("first request should pass, waited %v", w)
	}
	if w := rl.reserve(); w != 0 {
		t.Errorf("second request within burst should pass, waited %v", w)
	}
	if w := rl.reserve(); w != 500*time.Millisecond {
		t.Errorf("expected 500ms wait at 2 req/s, got %v", w)
	}

	now = now.Add(2 * time.Second)
	if w := rl.reserve(); w != 0 {
		t.Errorf("expected refill after 2s, waited %v", w)
	}
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.1, Burst: 1})
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("expected context error while waiting for a token")
	}
}
