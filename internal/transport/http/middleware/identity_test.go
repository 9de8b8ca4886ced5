package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func echoUserHandler(seen *uuid.UUID, present *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen, *present = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityMiddleware_ValidHeader(t *testing.T) {
	var seen uuid.UUID
	var present bool
	mw := IdentityMiddleware(true)(echoUserHandler(&seen, &present))

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "  "+id.String()+" ")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("valid header: got status %d, want %d", rec.Code, http.StatusOK)
	}
	if !present || seen != id {
		t.Errorf("context identity = %v (present=%v), want %v", seen, present, id)
	}
}

func TestIdentityMiddleware_MissingRequired(t *testing.T) {
	var seen uuid.UUID
	var present bool
	mw := IdentityMiddleware(true)(echoUserHandler(&seen, &present))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header: got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestIdentityMiddleware_MissingOptional(t *testing.T) {
	var seen uuid.UUID
	var present bool
	mw := IdentityMiddleware(false)(echoUserHandler(&seen, &present))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("optional mode: got status %d, want %d", rec.Code, http.StatusOK)
	}
	if present {
		t.Error("optional mode stored an identity that was never sent")
	}
}

func TestIdentityMiddleware_Malformed(t *testing.T) {
	for _, raw := range []string{"not-a-uuid", uuid.Nil.String()} {
		for _, required := range []bool{true, false} {
			var seen uuid.UUID
			var present bool
			mw := IdentityMiddleware(required)(echoUserHandler(&seen, &present))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(UserIDHeader, raw)
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("header %q (required=%v): got status %d, want %d", raw, required, rec.Code, http.StatusBadRequest)
			}
		}
	}
}
