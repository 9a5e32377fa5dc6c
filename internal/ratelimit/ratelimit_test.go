package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowBurstThenDeny(t *testing.T) {
	t.Parallel()

	l := NewInMemoryLimiter(1, time.Hour, 2)

	if !l.Allow("instagram/main") {
		t.Fatal("first Allow() = false, want true")
	}
	if !l.Allow("instagram/main") {
		t.Fatal("second Allow() = false, want true (burst of 2)")
	}
	if l.Allow("instagram/main") {
		t.Fatal("third Allow() = true, want false")
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l := NewInMemoryLimiter(1, time.Hour, 1)

	if !l.Allow("instagram/main") {
		t.Fatal("Allow(instagram/main) = false, want true")
	}
	if l.Allow("instagram/main") {
		t.Fatal("second Allow(instagram/main) = true, want false")
	}
	if !l.Allow("tiktok/main") {
		t.Fatal("Allow(tiktok/main) = false, want true; keys must not share buckets")
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := NewInMemoryLimiter(1, time.Hour, 1)
	if !l.Allow("instagram/alt") {
		t.Fatal("Allow() = false, want true")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "instagram/alt"); err == nil {
		t.Fatal("Wait() error = nil, want context deadline error")
	}
}
