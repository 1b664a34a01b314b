package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr.Code, rr.Body.String()
}

func TestNewMux_Routes(t *testing.T) {
	ObserveStage("docs", nil, time.Millisecond)
	h := NewMux(func() any { return map[string]string{"stage": "docs"} })

	if code, body := get(t, h, "/healthz"); code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz %d %q", code, body)
	}
	code, body := get(t, h, "/metrics")
	if code != http.StatusOK || !strings.Contains(body, "ggufpub_pipeline_stage_duration_seconds") {
		t.Fatalf("metrics %d:\n%s", code, body)
	}
	code, body = get(t, h, "/status")
	if code != http.StatusOK || !strings.Contains(body, `"stage":"docs"`) {
		t.Fatalf("status %d %q", code, body)
	}
}

func TestNewMux_NoStatus(t *testing.T) {
	if code, _ := get(t, NewMux(nil), "/status"); code != http.StatusNotFound {
		t.Fatalf("expected 404 without a status func, got %d", code)
	}
}

func TestListen_ServesAndShutsDown(t *testing.T) {
	s, err := Listen("127.0.0.1:0", NewMux(nil), zerolog.Nop())
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(b) != "ok" {
		t.Fatalf("body %q", b)
	}
	s.Shutdown()
	if _, err := http.Get("http://" + s.Addr() + "/healthz"); err == nil {
		t.Fatal("expected connection error after shutdown")
	}
}
