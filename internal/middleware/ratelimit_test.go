package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conradkoh/jcep-sub000/internal/config"
)

func doRequest(t *testing.T, handler http.Handler, ip string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterBlocksAfterAllowance(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:  true,
		Requests: 2,
		Duration: time.Minute,
	})

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, doRequest(t, handler, "203.0.113.7"))
	assert.Equal(t, http.StatusOK, doRequest(t, handler, "203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(t, handler, "203.0.113.7"))

	// Allowances are tracked per client.
	assert.Equal(t, http.StatusOK, doRequest(t, handler, "203.0.113.8"))
}

func TestRateLimiterDisabledPassesEverything(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:  false,
		Requests: 1,
		Duration: time.Minute,
	})

	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(t, handler, "203.0.113.9"))
	}
}

func TestClientIPPrefersForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	assert.Equal(t, "10.0.0.1:4242", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", clientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.10")
	assert.Equal(t, "192.0.2.10", clientIP(req))
}
