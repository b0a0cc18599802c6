package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"transferdash/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transfers/1").
		Body(map[string]int{"count": 2}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("Location") != "/api/transfers/1" {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"count":2}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		builder *JSONResponseBuilder
		status  int
	}{
		{BadRequestError("x"), http.StatusBadRequest},
		{UnprocessableEntityError("x"), http.StatusUnprocessableEntity},
		{NotFoundError("x"), http.StatusNotFound},
		{InternalServerError("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		tt.builder.Write(w)
		if w.Code != tt.status || strings.TrimSpace(w.Body.String()) != `{"error":"x"}` {
			t.Errorf("got %d %s, want %d", w.Code, w.Body.String(), tt.status)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("transfer x: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrSameAccount, http.StatusUnprocessableEntity},
		{fmt.Errorf("amount: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{core.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{badRequest("nope"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	writeError(w, r, "list", errors.New("dial tcp 10.0.0.5:5432: refused"))
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "10.0.0.5") {
		t.Fatalf("internal error leaked: %d %s", w.Code, w.Body.String())
	}
}
