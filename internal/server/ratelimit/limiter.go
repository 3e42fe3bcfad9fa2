// Package ratelimit implements token bucket rate limiting for HTTP handlers.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // requests left in current window
	RetryAfter time.Duration // how long to wait before retrying (0 if allowed)
}

// Limiter manages one token bucket per key.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     rate.Limit
	burst    int
	perMin   int
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing perMin requests per minute per key,
// with bursts up to burst requests. It returns nil when perMin is 0, which
// disables limiting.
func NewLimiter(perMin, burst int) *Limiter {
	if perMin <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = max(perMin/6, 1)
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(float64(perMin) / time.Minute.Seconds()),
		burst:   burst,
		perMin:  perMin,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow consumes one token for key if available.
//
// A nil Limiter allows everything.
func (l *Limiter) Allow(key string) Result {
	if l == nil {
		return Result{Allowed: true}
	}
	now := time.Now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	allowed := r.OK() && r.DelayFrom(now) == 0
	var retryAfter time.Duration
	if !allowed {
		if r.OK() {
			retryAfter = r.DelayFrom(now)
			r.CancelAt(now)
		}
		retryAfter = max(retryAfter.Round(time.Second), time.Second)
	}
	return Result{
		Allowed:    allowed,
		Limit:      l.perMin,
		Remaining:  max(int(b.limiter.TokensAt(now)), 0),
		RetryAfter: retryAfter,
	}
}

// cleanupLoop removes stale buckets every 10 minutes.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now())
		case <-l.stop:
			return
		}
	}
}

// cleanup removes buckets that haven't been used recently and are full.
func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	stale := now.Add(-10 * time.Minute)
	for key, b := range l.buckets {
		if b.lastSeen.Before(stale) && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
}

// Limiters selects a limiter by request method.
type Limiters struct {
	Read  *Limiter
	Write *Limiter
}

// NewLimiters creates read and write limiters; 0 disables a tier.
func NewLimiters(readPerMin, writePerMin int) *Limiters {
	return &Limiters{
		Read:  NewLimiter(readPerMin, 0),
		Write: NewLimiter(writePerMin, 0),
	}
}

// Match returns the limiter for method, or nil when the tier is disabled.
func (ls *Limiters) Match(method string) *Limiter {
	if ls == nil {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return ls.Write
	default:
		return ls.Read
	}
}

// Close stops all limiters.
func (ls *Limiters) Close() {
	if ls == nil {
		return
	}
	ls.Read.Close()
	ls.Write.Close()
}

// WriteHeaders writes rate limit headers to the response.
func WriteHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	// Retry-After only on 429 responses
	if !result.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	}
}
