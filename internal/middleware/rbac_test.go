package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conradkoh/jcep-sub000/internal/config"
	"github.com/stretchr/testify/assert"
)

func requestWithRoles(roles ...string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(r.Context(), UserIDKey, "user-1")
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	return r.WithContext(ctx)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	handler := RequireRole("admin")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRoles("admin", "user"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	handler := RequireRole("admin")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRoles("buddy"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRejectsUnauthenticated(t *testing.T) {
	handler := RequireRole("admin")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAnyRole(t *testing.T) {
	handler := RequireAnyRole("admin", "buddy")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRoles("buddy"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithRoles("user"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimiterBlocksAfterBudget(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:  true,
		Requests: 2,
		Duration: time.Minute,
	})
	handler := rl.Limit(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client still has budget.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	cors := NewCORSMiddleware(&config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	handler := cors.Handler(okHandler())

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/review-forms", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSUnknownOrigin(t *testing.T) {
	cors := NewCORSMiddleware(&config.CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	handler := cors.Handler(okHandler())

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.example.com")
	handler.ServeHTTP(rec, r)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
