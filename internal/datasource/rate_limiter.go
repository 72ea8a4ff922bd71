package datasource

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements token-bucket rate limiting for one API source.
type RateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter holding at most maxTokens, adding one
// token every refillRate (e.g. 100ms = 10 requests/second).
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Wait blocks until a token is available or the context is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (rl *RateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(rl.lastRefill) / rl.refillRate)
	if refill > 0 {
		rl.tokens += refill
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// Source names for the shared per-source limiter.
const (
	sourceBinance    = "binance"
	sourceCoinGecko  = "coingecko"
	sourceCMC        = "cmc"
	sourceEtherscan  = "etherscan"
	sourceLunarCrush = "lunarcrush"
	sourceAllium     = "allium"
)

// limiters holds one token bucket per upstream API, shared by every client
// in the process so the CLIs and the server stay inside the same budgets.
var limiters = newSourceLimiters()

func newSourceLimiters() *MultiRateLimiter {
	mrl := NewMultiRateLimiter()
	mrl.AddLimiter(sourceBinance, 10, 150*time.Millisecond) // 1200 weight/min cap, stay well under
	mrl.AddLimiter(sourceCoinGecko, 5, time.Second)
	mrl.AddLimiter(sourceCMC, 3, time.Second)
	mrl.AddLimiter(sourceEtherscan, 5, time.Second) // free tier: 5 calls/second
	mrl.AddLimiter(sourceLunarCrush, 2, time.Second)
	mrl.AddLimiter(sourceAllium, 2, time.Second)
	return mrl
}

// MultiRateLimiter manages rate limiters keyed by source name.
type MultiRateLimiter struct {
	limiters map[string]*RateLimiter
	mu       sync.RWMutex
}

// NewMultiRateLimiter creates an empty multi-source rate limiter.
func NewMultiRateLimiter() *MultiRateLimiter {
	return &MultiRateLimiter{
		limiters: make(map[string]*RateLimiter),
	}
}

// AddLimiter registers a rate limiter for a source.
func (mrl *MultiRateLimiter) AddLimiter(source string, maxTokens int, refillRate time.Duration) {
	mrl.mu.Lock()
	defer mrl.mu.Unlock()

	mrl.limiters[source] = NewRateLimiter(maxTokens, refillRate)
}

// Wait waits on the named source's limiter. Unknown sources pass through.
func (mrl *MultiRateLimiter) Wait(ctx context.Context, source string) error {
	mrl.mu.RLock()
	limiter, ok := mrl.limiters[source]
	mrl.mu.RUnlock()

	if !ok {
		return nil
	}
	return limiter.Wait(ctx)
}
