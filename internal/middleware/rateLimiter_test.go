package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiter_Burst(t *testing.T) {
	l := NewIPRateLimiter(1, 2, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("burst should be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Error("third request inside the same second should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other addresses have their own bucket")
	}
}

func TestIPRateLimiter_SweepsIdleVisitors(t *testing.T) {
	l := NewIPRateLimiter(1, 1, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	l.lastSweep = now

	l.Allow("10.0.0.1")
	l.Allow("10.0.0.2")
	if l.Len() != 2 {
		t.Fatalf("expected 2 visitors, got %d", l.Len())
	}

	now = now.Add(50 * time.Second)
	l.Allow("10.0.0.2")

	now = now.Add(15 * time.Second)
	l.Allow("10.0.0.3")
	if l.Len() != 2 {
		t.Errorf("idle visitor should be swept, have %d", l.Len())
	}
}
