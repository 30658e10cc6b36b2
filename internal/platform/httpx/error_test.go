package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gematria-field/api/internal/platform/requestctx"
)

func TestWriteErrorEnvelope(t *testing.T) {
	ctx := requestctx.WithTrace(context.Background(), requestctx.TraceInfo{TraceID: "abc"})
	rr := httptest.NewRecorder()

	WriteError(ctx, rr, NewError("store_unavailable", "phrase store\nunavailable", http.StatusServiceUnavailable).
		WithDetails(map[string]any{"degraded": true, "status": 1}))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "store_unavailable" || payload["message"] != "phrase store unavailable" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["trace_id"] != "abc" || payload["degraded"] != true {
		t.Fatalf("missing trace or details: %v", payload)
	}
	if payload["status"] != float64(503) {
		t.Fatalf("details must not override status: %v", payload["status"])
	}
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	if got := NewError("x", "y", 0).Status; got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Text string `json:"text"`
	}
	cases := []struct {
		name    string
		input   string
		limit   int64
		wantErr error
	}{
		{name: "ok", input: `{"text":"love"}`},
		{name: "empty", input: "  ", wantErr: ErrEmptyBody},
		{name: "too large", input: `{"text":"` + strings.Repeat("a", 64) + `"}`, limit: 16, wantErr: ErrBodyTooLarge},
		{name: "unknown field", input: `{"txt":"love"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tc.input))
			var dst body
			err := DecodeJSON(req, tc.limit, &dst)
			switch {
			case tc.name == "ok":
				if err != nil || dst.Text != "love" {
					t.Fatalf("unexpected result %q, %v", dst.Text, err)
				}
			case tc.wantErr != nil:
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
			default:
				if err == nil {
					t.Fatal("expected error")
				}
			}
		})
	}
}

func TestBadRequestMapsTooLarge(t *testing.T) {
	if got := BadRequest(ErrBodyTooLarge).Status; got != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", got)
	}
}
