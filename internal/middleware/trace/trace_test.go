package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("expected request id in context, got %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected header %q, got %q", seen, rr.Header().Get(RequestIDHeader))
	}
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status not propagated: %d", rr.Code)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("expected 1 request, got %d", got)
	}
}

func TestResponseWriterFlushes(t *testing.T) {
	m := NewMiddleware(nil, nil)
	var flushable bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		_, _ = w.Write([]byte("data: x\n\n"))
		w.(http.Flusher).Flush()
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats/stream", nil))
	if !flushable || !rr.Flushed {
		t.Fatalf("expected flush to reach the recorder")
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if RequestIDFromRequest(r) != "" {
		t.Fatalf("expected empty id")
	}
}
