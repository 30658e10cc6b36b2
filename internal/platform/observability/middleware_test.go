package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gematria-field/api/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	cases := []struct {
		header  string
		ok      bool
		sampled bool
	}{
		{header: "105445aa7843bc8bf206b12000100000/1;o=1", ok: true, sampled: true},
		{header: "105445aa7843bc8bf206b12000100000/00000000000000ff;o=0", ok: true},
		{header: "105445aa7843bc8bf206b12000100000/1", ok: true},
		{header: "short/1;o=1"},
		{header: "105445aa7843bc8bf206b12000100000/"},
		{header: ""},
	}
	for _, tc := range cases {
		sc, ok := parseCloudTraceContext(tc.header)
		if ok != tc.ok {
			t.Fatalf("%q: ok = %v, want %v", tc.header, ok, tc.ok)
		}
		if ok && sc.IsSampled() != tc.sampled {
			t.Fatalf("%q: sampled = %v", tc.header, sc.IsSampled())
		}
	}
}

func TestTraceMiddlewarePropagatesIncomingTrace(t *testing.T) {
	var got requestctx.TraceInfo
	handler := TraceMiddleware("proj")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ciphers", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got.TraceID != "105445aa7843bc8bf206b12000100000" || got.ProjectID != "proj" {
		t.Fatalf("unexpected trace info %+v", got)
	}
	if !strings.HasPrefix(rr.Header().Get(cloudTraceHeader), got.TraceID+"/") {
		t.Fatalf("expected trace header echoed, got %q", rr.Header().Get(cloudTraceHeader))
	}
}

func TestSessionMiddleware(t *testing.T) {
	var session string
	handler := SessionMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		session = requestctx.Session(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(SessionHeader, " tab 42\x00 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if session != "tab42" {
		t.Fatalf("expected sanitised session, got %q", session)
	}
}

func TestRequestLoggerLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := InjectLoggerMiddleware(zap.New(core))(RequestLoggerMiddleware("")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/matches", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion log, got %d", len(entries))
	}
	if entries[0].Level != zap.ErrorLevel {
		t.Fatalf("expected error level for 503, got %v", entries[0].Level)
	}
	if entries[0].ContextMap()["status"] != int64(503) {
		t.Fatalf("unexpected fields %v", entries[0].ContextMap())
	}
}

func TestRecoveryMiddlewareWritesEnvelope(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), "internal_server_error") {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}
