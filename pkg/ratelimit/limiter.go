package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a thread-safe token bucket.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     float64
	refillRate float64 // tokens added per second
	lastRefill time.Time
}

// NewTokenBucket creates a bucket allowing bursts of capacity requests,
// refilled at refillRate per second.
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Tokens returns the current number of available tokens
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

// Reset refills the bucket to capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = float64(tb.capacity)
	tb.lastRefill = time.Now()
}

// KeyedLimiter manages one token bucket per key (IP, account id, ...).
// Inactive buckets are dropped after the TTL.
type KeyedLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate float64
	ttl        time.Duration
}

// NewKeyedLimiter creates a keyed limiter. A ttl of 0 keeps buckets forever.
func NewKeyedLimiter(capacity int, refillRate float64, ttl time.Duration) *KeyedLimiter {
	kl := &KeyedLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}
	if ttl > 0 {
		go kl.cleanup()
	}
	return kl
}

// Allow consumes one token from the bucket for key, creating it on first use.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	bucket, exists := kl.buckets[key]
	if !exists {
		bucket = NewTokenBucket(kl.capacity, kl.refillRate)
		kl.buckets[key] = bucket
	}
	kl.mu.Unlock()

	return bucket.Allow()
}

// Reset refills the bucket for a specific key
func (kl *KeyedLimiter) Reset(key string) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	if bucket, exists := kl.buckets[key]; exists {
		bucket.Reset()
	}
}

func (kl *KeyedLimiter) cleanup() {
	ticker := time.NewTicker(kl.ttl)
	defer ticker.Stop()

	for range ticker.C {
		kl.mu.Lock()
		now := time.Now()
		for key, bucket := range kl.buckets {
			if now.Sub(bucket.lastRefill) > kl.ttl {
				delete(kl.buckets, key)
			}
		}
		kl.mu.Unlock()
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
