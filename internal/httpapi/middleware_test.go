package httpapi

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerElevatesServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("5xx responses must log at error level, got: %s", buf.String())
	}

	buf.Reset()
	h = RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	if !strings.Contains(buf.String(), "level=INFO") {
		t.Fatalf("4xx responses stay at info level, got: %s", buf.String())
	}
}

func TestRecovererLogsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var h http.Handler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h = RequestID()(h)
	h = Recoverer(logger, true)(h)

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("X-Request-Id", "req-panic-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(buf.String(), "request_id=req-panic-1") {
		t.Fatalf("panic log must carry the request id, got: %s", buf.String())
	}
	if strings.Contains(buf.String(), "stack=") {
		t.Fatalf("prod panic log must not dump the stack, got: %s", buf.String())
	}
}
