package datasource

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d failed: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)

	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("First Wait failed: %v", err)
	}

	bounded, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(bounded); err == nil {
		t.Error("Expected context error on exhausted bucket, got nil")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	ctx := context.Background()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("First Wait failed: %v", err)
	}

	bounded, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := rl.Wait(bounded); err != nil {
		t.Errorf("Expected Wait to succeed after refill, got %v", err)
	}
}

func TestMultiRateLimiterUnknownSourcePassesThrough(t *testing.T) {
	mrl := NewMultiRateLimiter()

	if err := mrl.Wait(context.Background(), "nobody"); err != nil {
		t.Errorf("Expected passthrough for unregistered source, got %v", err)
	}
}

func TestSharedLimiterCoversEverySource(t *testing.T) {
	mrl := newSourceLimiters()

	sources := []string{
		sourceBinance, sourceCoinGecko, sourceCMC,
		sourceEtherscan, sourceLunarCrush, sourceAllium,
	}
	for _, source := range sources {
		mrl.mu.RLock()
		_, ok := mrl.limiters[source]
		mrl.mu.RUnlock()
		if !ok {
			t.Errorf("Expected a registered limiter for %s, got none", source)
		}
		if err := mrl.Wait(context.Background(), source); err != nil {
			t.Errorf("Wait on %s failed: %v", source, err)
		}
	}
}
