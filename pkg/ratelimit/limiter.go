package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock returns the current time. Tests replace it to move time by hand.
type Clock func() time.Time

// TokenBucket holds up to capacity tokens and regains one every interval.
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   float64
	interval time.Duration
	last     time.Time
	now      Clock
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(capacity int, interval time.Duration, now Clock) *TokenBucket {
	if now == nil {
		now = time.Now
	}
	return &TokenBucket{
		capacity: capacity,
		tokens:   float64(capacity),
		interval: interval,
		last:     now(),
		now:      now,
	}
}

func (tb *TokenBucket) refill(now time.Time) {
	if tb.interval > 0 {
		gained := float64(now.Sub(tb.last)) / float64(tb.interval)
		tb.tokens = min(float64(tb.capacity), tb.tokens+gained)
	}
	tb.last = now
}

// Allow takes one token. It reports false, and the wait until the next token,
// when the bucket is empty.
func (tb *TokenBucket) Allow() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.now())
	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	if tb.interval <= 0 {
		return false, 0
	}
	return false, time.Duration((1 - tb.tokens) * float64(tb.interval))
}

func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill(tb.now())
	return tb.tokens
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = float64(tb.capacity)
	tb.last = tb.now()
}

func (tb *TokenBucket) idleSince() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.last
}

// Limiter keeps one TokenBucket per key, such as a client IP or an email address.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*TokenBucket
	capacity int
	interval time.Duration
	ttl      time.Duration
	now      Clock
}

type Option func(*Limiter)

// WithTTL drops buckets idle for longer than ttl when Sweep or Run is used.
func WithTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		l.ttl = ttl
	}
}

func WithClock(now Clock) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New returns a limiter allowing capacity requests in a burst per key and one
// more every interval.
func New(capacity int, interval time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*TokenBucket),
		capacity: capacity,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow takes a token from key's bucket, creating it on first use.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewTokenBucket(l.capacity, l.interval, l.now)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bucket, ok := l.buckets[key]; ok {
		bucket.Reset()
	}
}

// Sweep removes buckets idle for longer than the TTL and returns how many it removed.
func (l *Limiter) Sweep() int {
	if l.ttl <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, bucket := range l.buckets {
		if now.Sub(bucket.idleSince()) > l.ttl {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Run sweeps once per TTL until ctx is done. It returns immediately without a TTL.
func (l *Limiter) Run(ctx context.Context) {
	if l.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Stats describes a limiter.
type Stats struct {
	ActiveBuckets int
	Capacity      int
	Interval      time.Duration
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		ActiveBuckets: len(l.buckets),
		Capacity:      l.capacity,
		Interval:      l.interval,
	}
}
