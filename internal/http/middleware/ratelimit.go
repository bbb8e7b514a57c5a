// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with per-client
// buckets and opportunistic garbage collection. The booking API has no user
// accounts, so buckets are keyed by client IP. Health and metrics probes can
// be exempted so scrapers never compete with customers for tokens.
//
// The limiter is process-local; it is edge-level abuse control, not an
// authorization mechanism.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByIP keys buckets by client IP ("ip:203.0.113.7").
func KeyByIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter. It is safe for
// concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor
	exempt   map[string]struct{}

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter replenishing rps tokens per second
// with the given burst (coerced to at least 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		exempt:   make(map[string]struct{}),
		ttl:      10 * time.Minute,
	}
}

// Exempt excludes exact request paths from limiting.
func (rl *RateLimiter) Exempt(paths ...string) *RateLimiter {
	for _, p := range paths {
		rl.exempt[p] = struct{}{}
	}
	return rl
}

// getVisitor returns the limiter for key, creating it if absent. Every 5000
// lookups idle buckets are evicted first, so a stale bucket is dropped even
// when it is the one being fetched.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Handler returns a Gin middleware that enforces the limits. Rejected
// requests get 429 with Retry-After: 1 and the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.exempt[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"status":     "error",
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
			"request_id": RequestIDFrom(c),
		})
	}
}
