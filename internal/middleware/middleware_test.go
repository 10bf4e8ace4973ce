package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"lifeplan/internal/domain"
	"lifeplan/internal/domain/models"
	"lifeplan/internal/httputil"
)

type stubVerifier struct{}

func (stubVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	if token != "good" {
		return nil, domain.ErrUnauthorized
	}
	c := &models.SupabaseClaims{Role: "authenticated"}
	c.Subject = "user-1"
	return c, nil
}

func (stubVerifier) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})
	h := AuthMiddleware(stubVerifier{})(next)

	tests := []struct {
		name     string
		method   string
		path     string
		header   string
		wantCode int
		wantUser string
	}{
		{"valid token", http.MethodGet, "/api/vision", "Bearer good", http.StatusOK, "user-1"},
		{"missing header", http.MethodGet, "/api/vision", "", http.StatusUnauthorized, ""},
		{"wrong scheme", http.MethodGet, "/api/vision", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", http.MethodGet, "/api/vision", "Bearer bad", http.StatusUnauthorized, ""},
		{"health is public", http.MethodGet, "/health", "", http.StatusOK, ""},
		{"preflight passes", http.MethodOptions, "/api/vision", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if seen != tt.wantUser {
				t.Errorf("expected user %q, got %q", tt.wantUser, seen)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Recovery(logger)(AuthMiddleware(stubVerifier{})(panicking))

	req := httptest.NewRequest(http.MethodPatch, "/api/vision/v1", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected problem json, got %q", ct)
	}
	var problem map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", logs.String(), err)
	}
	want := map[string]any{
		"msg":     "panic recovered",
		"error":   "boom",
		"method":  http.MethodPatch,
		"path":    "/api/vision/v1",
		"user_id": "user-1",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("log %s = %v, want %v", k, entry[k], v)
		}
	}
	if entry["stack"] == "" || entry["stack"] == nil {
		t.Error("expected a stack trace in the log")
	}
	if id, _ := problem["incident_id"].(string); id == "" || id != entry["incident_id"] {
		t.Errorf("incident id mismatch: response %v, log %v", problem["incident_id"], entry["incident_id"])
	}
}

func TestRecovery_AbortHandlerPropagates(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/vision", nil))
}
