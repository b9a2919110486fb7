package restapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/napassornsp/restbase-go/internal/httpx"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNormalizeSuccessJSON(t *testing.T) {
	out := Normalize(jsonResponse(200, `[{"id":"a"}]`), nil)
	if !out.OK() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if string(out.Data) != `[{"id":"a"}]` {
		t.Fatalf("unexpected data: %s", out.Data)
	}
}

func TestNormalizeSuccessText(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("pong")),
	}
	out := Normalize(resp, nil)
	if !out.OK() {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	var s string
	if err := out.Decode(&s); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s != "pong" {
		t.Fatalf("expected raw text data, got %q", s)
	}
}

func TestNormalizeEmptySuccess(t *testing.T) {
	out := Normalize(jsonResponse(200, ""), nil)
	if !out.OK() || out.Data != nil {
		t.Fatalf("expected empty outcome, got %+v", out)
	}
}

func TestNormalizeErrorField(t *testing.T) {
	httpErr := &httpx.HTTPError{
		StatusCode: 401,
		Status:     "401 Unauthorized",
		Body:       []byte(`{"error":"invalid credentials"}`),
		JSON:       map[string]any{"error": "invalid credentials"},
	}
	out := Normalize(nil, httpErr)
	if out.OK() {
		t.Fatal("expected error outcome")
	}
	if got := out.ErrValue(); got != "invalid credentials" {
		t.Fatalf("expected error field value, got %v", got)
	}
	if msg := out.AsError().Error(); msg != "invalid credentials" {
		t.Fatalf("AsError mismatch: %q", msg)
	}
}

func TestNormalizeErrorWholeBody(t *testing.T) {
	httpErr := &httpx.HTTPError{
		StatusCode: 400,
		Status:     "400 Bad Request",
		Body:       []byte(`{"reason":"missing field"}`),
		JSON:       map[string]any{"reason": "missing field"},
	}
	out := Normalize(nil, httpErr)
	obj, ok := out.ErrValue().(map[string]any)
	if !ok || obj["reason"] != "missing field" {
		t.Fatalf("expected whole decoded body, got %v", out.ErrValue())
	}
}

func TestNormalizeErrorStatusFallback(t *testing.T) {
	httpErr := &httpx.HTTPError{
		StatusCode: 502,
		Status:     "502 Bad Gateway",
	}
	out := Normalize(nil, httpErr)
	if got := out.ErrValue(); got != "502 Bad Gateway" {
		t.Fatalf("expected status fallback, got %v", got)
	}
}

func TestNormalizeTransportError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	out := Normalize(nil, cause)
	if out.OK() {
		t.Fatal("expected error outcome")
	}
	if got := out.ErrValue(); got != cause.Error() {
		t.Fatalf("expected transport error text, got %v", got)
	}
}
