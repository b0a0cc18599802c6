package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()

	clock := time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request in the window should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are tracked separately")
	}

	clock = clock.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Fatal("a new window should reset the count")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 5})
	defer rl.Stop()

	clock := time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	rl.Allow("a")
	clock = clock.Add(11 * time.Minute)
	rl.Allow("b")
	rl.cleanupStaleEntries()

	if rl.ActiveClients() != 1 {
		t.Fatalf("expected stale client removed, got %d", rl.ActiveClients())
	}
}

func TestMiddlewareOnlyCountsConfiguredMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("GET should never be limited, got %d", rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transfers", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("first POST should pass, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transfers", nil))
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("second POST should be limited, got %d", rr.Code)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
