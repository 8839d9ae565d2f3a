package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hyperjump/habitsim/internal/models"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = time.Hour

// RateLimiter implements per-client rate limiting. Idle clients are pruned on access.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	lastPrune time.Time
	now       func() time.Time
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per client with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rateLimiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	now := rl.now()
	if now.Sub(rl.lastPrune) > limiterIdleTTL {
		rl.prune(now)
		rl.lastPrune = now
	}
	entry, ok := rl.limiters[client]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (rl *RateLimiter) prune(now time.Time) {
	threshold := now.Add(-limiterIdleTTL)
	for client, entry := range rl.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(rl.limiters, client)
		}
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientKey(r)) {
			rateLimitedTotal.Inc()
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
