// Package middleware provides HTTP middleware for the lfsdesk server.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/brianly1003/lfsdesk/internal/sync"
)

// RateLimiter configuration constants.
const (
	DefaultMaxRequests = 30
	DefaultWindow      = time.Minute
	DefaultCleanup     = 5 * time.Minute
)

// RateLimiter is a sliding window limiter keyed by client address.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	done      chan struct{}
	closeOnce sync.Once
}

type bucket struct {
	hits       []time.Time
	lastAccess time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithMaxRequests sets the number of requests allowed per window.
func WithMaxRequests(n int) RateLimiterOption {
	return func(r *RateLimiter) {
		if n > 0 {
			r.maxRequests = n
		}
	}
}

// WithWindow sets the sliding window length.
func WithWindow(d time.Duration) RateLimiterOption {
	return func(r *RateLimiter) {
		if d > 0 {
			r.window = d
		}
	}
}

// NewRateLimiter creates a limiter and starts its cleanup loop. Call Close when done.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	r := &RateLimiter{
		maxRequests: DefaultMaxRequests,
		window:      DefaultWindow,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.cleanupLoop()
	return r
}

// Allow records a request for key and reports whether it is within the limit.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{}
		r.buckets[key] = b
	}
	b.hits = r.live(b.hits, now)
	b.lastAccess = now

	if len(b.hits) >= r.maxRequests {
		return false
	}
	b.hits = append(b.hits, now)
	return true
}

// Remaining returns how many more requests key may make in the current window.
func (r *RateLimiter) Remaining(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		return r.maxRequests
	}
	return max(r.maxRequests-len(r.live(b.hits, r.now())), 0)
}

// Limit returns the configured requests per window.
func (r *RateLimiter) Limit() int {
	return r.maxRequests
}

// Close stops the cleanup loop.
func (r *RateLimiter) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *RateLimiter) live(hits []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	return lo.Filter(hits, func(t time.Time, _ int) bool { return t.After(cutoff) })
}

func (r *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(DefaultCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *RateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-2 * r.window)
	for key, b := range r.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

// ClientIP returns the remote IP of r without its port. Forwarding headers are
// ignored; lfsdesk listens on a local address.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the limit with 429.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if !limiter.Allow(key) {
				log.Warn().Str("remote_addr", key).Str("path", r.URL.Path).Msg("rate limit exceeded")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
			next.ServeHTTP(w, r)
		})
	}
}
