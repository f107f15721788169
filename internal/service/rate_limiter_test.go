package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSlidingWindowLimiter(t *testing.T) {
	limiter := NewRateLimiter(time.Minute, 2)

	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("expected first request allowed")
	}
	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("expected second request allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("expected third request blocked")
	}

	// Otra clave tiene su propio contador.
	if !limiter.Allow("5.6.7.8") {
		t.Fatalf("expected independent key allowed")
	}
}

func TestSlidingWindowLimiter_WindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(20*time.Millisecond, 1)

	if !limiter.Allow("key") {
		t.Fatalf("expected first request allowed")
	}
	if limiter.Allow("key") {
		t.Fatalf("expected second request blocked")
	}

	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("key") {
		t.Fatalf("expected request allowed after window")
	}
}

type mockRedisEvaler struct {
	counts map[string]int64
	err    error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, _ string, keys []string, _ ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[keys[0]]++
	cmd.SetVal(m.counts[keys[0]])
	return cmd
}

func TestRedisRateLimiter(t *testing.T) {
	evaler := &mockRedisEvaler{}
	limiter := &redisRateLimiter{client: evaler, window: time.Minute, max: 2, prefix: "chat:rl:"}

	if !limiter.Allow("1.2.3.4") || !limiter.Allow("1.2.3.4") {
		t.Fatalf("expected first two requests allowed")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("expected third request blocked")
	}
	if evaler.counts["chat:rl:1.2.3.4"] != 3 {
		t.Fatalf("expected prefixed counter, got %v", evaler.counts)
	}
}

func TestRedisRateLimiter_FailOpen(t *testing.T) {
	evaler := &mockRedisEvaler{err: errors.New("redis down")}
	limiter := &redisRateLimiter{client: evaler, window: time.Minute, max: 1, prefix: "chat:rl:"}

	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("expected fail-open when redis errors")
	}
}

func TestRedisRateLimiter_BlankKey(t *testing.T) {
	limiter := &redisRateLimiter{client: &mockRedisEvaler{}, window: time.Minute, max: 1, prefix: "chat:rl:"}
	if limiter.Allow("   ") {
		t.Fatalf("expected blank key blocked")
	}
}
