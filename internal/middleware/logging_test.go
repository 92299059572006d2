package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayaka/famauth/internal/model"
)

type mockStatusObserver struct {
	method     string
	path       string
	statusCode int
	calls      int
}

func (m *mockStatusObserver) RecordHTTPRequest(method, path string, statusCode int) {
	m.method = method
	m.path = path
	m.statusCode = statusCode
	m.calls++
}

func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/verify-signup-code", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v, want POST", entry["method"])
	}
	if entry["path"] != "/verify-signup-code" {
		t.Errorf("path = %v, want /verify-signup-code", entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusOK)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
}

func TestLoggingMiddleware_IncludesAuthID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	ctx := ContextWithAuthUser(req.Context(), &model.AuthUser{ID: "auth-1"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req.WithContext(ctx))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["auth_id"] != "auth-1" {
		t.Errorf("auth_id = %v, want auth-1", entry["auth_id"])
	}
}

func TestLoggingMiddleware_ErrorStatusUsesErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/create-dependent-account", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
}

func TestLoggingMiddleware_NotifiesObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	observer := &mockStatusObserver{}

	mw := NewLoggingMiddleware(logger, observer)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	req := httptest.NewRequest(http.MethodPost, "/verify-signup-code", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if observer.calls != 1 {
		t.Fatalf("observer calls = %d, want 1", observer.calls)
	}
	if observer.method != "POST" || observer.path != "/verify-signup-code" || observer.statusCode != http.StatusBadRequest {
		t.Errorf("observer got (%s, %s, %d), want (POST, /verify-signup-code, %d)",
			observer.method, observer.path, observer.statusCode, http.StatusBadRequest)
	}
}

func TestStatusRecorder_DefaultsTo200OnWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w}

	if _, err := rec.Write([]byte("ok")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want %d", rec.statusCode, http.StatusOK)
	}
}
