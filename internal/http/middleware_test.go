package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"ragsync/internal/contextutil"
)

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	var got *slog.Logger
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = contextutil.LoggerFromContext(r.Context())
	})
	mw := middleware.RequestID(LoggerMiddleware(base)(handler))

	mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/ask", nil))

	if got == nil || got == slog.Default() {
		t.Fatal("LoggerMiddleware() should put a request logger in the context")
	}
	got.Info("hello")
	for _, want := range []string{"msg=hello", "method=POST", "path=/api/v1/ask", "request_id="} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log output %q missing %q", buf.String(), want)
		}
	}
}

func TestLoggerMiddleware_NilBase(t *testing.T) {
	var got context.Context
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Context()
	})

	LoggerMiddleware(nil)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil {
		t.Fatal("handler was not called")
	}
	if contextutil.LoggerFromContext(got) == nil {
		t.Error("LoggerMiddleware(nil) should fall back to the default logger")
	}
}

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		path      string
		status    int
		body      string
		wantLevel string // empty means not logged
	}{
		{name: "success", method: http.MethodPost, path: "/api/v1/ask", status: http.StatusOK, body: "hello", wantLevel: "INFO"},
		{name: "client error", method: http.MethodPost, path: "/api/v1/ask", status: http.StatusBadRequest, wantLevel: "WARN"},
		{name: "server error", method: http.MethodPost, path: "/api/v1/ask", status: http.StatusBadGateway, wantLevel: "ERROR"},
		{name: "healthy health check", method: http.MethodGet, path: "/api/health", status: http.StatusOK},
		{name: "unhealthy health check", method: http.MethodGet, path: "/api/health", status: http.StatusServiceUnavailable, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			req = req.WithContext(contextutil.WithLogger(req.Context(), logger))
			w := httptest.NewRecorder()
			RequestLogger(handler).ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %v, want %v", w.Code, tt.status)
			}
			out := buf.String()
			if tt.wantLevel == "" {
				if out != "" {
					t.Errorf("expected no log line, got %q", out)
				}
				return
			}
			for _, want := range []string{"level=" + tt.wantLevel, "request completed", "bytes=" + strconv.Itoa(len(tt.body))} {
				if !strings.Contains(out, want) {
					t.Errorf("log output %q missing %q", out, want)
				}
			}
		})
	}
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusAccepted)
	_, _ = rw.Write([]byte("abc"))
	rw.Flush()

	if rw.statusCode != http.StatusAccepted || w.Code != http.StatusAccepted {
		t.Errorf("status = %d/%d, want %d", rw.statusCode, w.Code, http.StatusAccepted)
	}
	if rw.bytes != 3 {
		t.Errorf("bytes = %d, want 3", rw.bytes)
	}
	if !w.Flushed {
		t.Error("Flush() should flush the underlying writer")
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
		wantVary   string
	}{
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:3000", wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:3000", wantVary: "Origin"},
		{name: "with origin", method: http.MethodPost, origin: "http://localhost:3000", wantStatus: http.StatusOK, wantOrigin: "http://localhost:3000", wantVary: "Origin"},
		{name: "without origin", method: http.MethodPost, wantStatus: http.StatusOK, wantOrigin: "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(tt.method, "/api/v1/ask", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			CORS(handler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			if called == (tt.method == http.MethodOptions) {
				t.Errorf("handler called = %v for %s", called, tt.method)
			}
			h := w.Header()
			if got := h.Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := h.Get("Vary"); got != tt.wantVary {
				t.Errorf("Vary = %q, want %q", got, tt.wantVary)
			}
			if h.Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" || h.Get("Access-Control-Max-Age") != "3600" {
				t.Errorf("unexpected CORS headers %v", h)
			}
		})
	}
}
