package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"not found", http.StatusNotFound, zapcore.InfoLevel},
		{"server error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})
			h := chiMiddleware.RequestID(WithRequestLogging(zap.New(core))(next))

			req := httptest.NewRequest(http.MethodPost, "/api/search/projects", nil)
			req.Header.Set("X-Request-ID", "req-1")
			h.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 log entry, got %d", len(entries))
			}
			e := entries[0]
			if e.Level != tt.wantLevel {
				t.Errorf("level = %v; want %v", e.Level, tt.wantLevel)
			}
			fields := e.ContextMap()
			if fields["path"] != "/api/search/projects" || fields["method"] != http.MethodPost {
				t.Errorf("unexpected fields: %v", fields)
			}
			if fields["status"] != int64(tt.status) {
				t.Errorf("status field = %v; want %d", fields["status"], tt.status)
			}
			if fields["bytes"] != int64(4) {
				t.Errorf("bytes field = %v; want 4", fields["bytes"])
			}
			if fields["request_id"] != "req-1" {
				t.Errorf("request_id field = %v; want req-1", fields["request_id"])
			}
		})
	}
}

func TestWithRequestLogging_ImplicitOK(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := logs.All()[0].ContextMap()["status"]; got != int64(http.StatusOK) {
		t.Errorf("status field = %v; want 200", got)
	}
}
