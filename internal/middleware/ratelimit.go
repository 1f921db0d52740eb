package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/config"
)

// RateLimiter caps requests per client IP over a fixed window
type RateLimiter struct {
	enabled bool
	limit   int
	window  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	remaining int
	resetAt   time.Time
}

// NewRateLimiter creates a rate limiter and starts its idle-bucket sweep
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		enabled: cfg.Enabled,
		limit:   cfg.Requests,
		window:  cfg.Duration,
		buckets: make(map[string]*bucket),
	}

	go rl.sweep()

	return rl
}

// Limit rejects requests once a client exhausts its window allowance
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.enabled && !rl.allow(clientIP(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok || now.After(b.resetAt) {
		rl.buckets[ip] = &bucket{remaining: rl.limit - 1, resetAt: now.Add(rl.window)}
		return true
	}

	if b.remaining == 0 {
		return false
	}
	b.remaining--

	return true
}

// sweep periodically drops buckets whose window has long passed
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	for range ticker.C {
		now := time.Now()

		rl.mu.Lock()
		for ip, b := range rl.buckets {
			if now.Sub(b.resetAt) > 2*time.Minute {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// clientIP extracts the originating client address, honouring proxy headers
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
