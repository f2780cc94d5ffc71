package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("key", 3, time.Minute) {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if rl.Allow("key", 3, time.Minute) {
		t.Error("request over the limit was allowed")
	}
	// Other keys are unaffected.
	if !rl.Allow("other", 3, time.Minute) {
		t.Error("unrelated key was denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("key", 1, 10*time.Millisecond) {
		t.Fatal("first request denied")
	}
	if rl.Allow("key", 1, 10*time.Millisecond) {
		t.Fatal("second request in window allowed")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("key", 1, 10*time.Millisecond) {
		t.Error("request after window expiry denied")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limited := RateLimit(NewRateLimiter(), func(r *http.Request) string { return "fixed" }, 1, time.Minute)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/invitations", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want 201", rec.Code)
	}

	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/invitations", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}
