package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"kookbridge/internal/metrics"
)

func testWebLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type fakeStatus struct {
	connected bool
	tag       string
}

func (f fakeStatus) Connected() bool { return f.connected }
func (f fakeStatus) BotTag() string  { return f.tag }

func newTestServer(status Status) *Server {
	s := NewServer(ServerConfig{Status: status, Version: "test", Logger: testWebLogger()})
	s.started = time.Now()
	return s
}

func TestHandleRoot_HelloWorld(t *testing.T) {
	s := newTestServer(fakeStatus{})
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()

	s.handleRoot(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if string(body) != "Hello World" {
		t.Errorf("expected Hello World, got %q", body)
	}
}

func TestHandleRoot_UnknownPath(t *testing.T) {
	s := newTestServer(fakeStatus{})
	req := httptest.NewRequest("GET", "/nope", nil)
	rr := httptest.NewRecorder()

	s.handleRoot(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestHandleHealthz_Connected(t *testing.T) {
	s := newTestServer(fakeStatus{connected: true, tag: "bridge#0001"})
	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()

	s.handleHealthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["gateway"] != true || body["bot"] != "bridge#0001" {
		t.Errorf("health body wrong: %v", body)
	}
}

func TestHandleHealthz_Disconnected(t *testing.T) {
	s := newTestServer(fakeStatus{connected: false})
	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()

	s.handleHealthz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected degraded, got %v", body["status"])
	}
}

func TestHandleHealthz_NilStatus(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rr := httptest.NewRecorder()

	// Must not panic without a status source.
	s.handleHealthz(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
}

func TestMetricsEndpointRenders(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()

	metrics.Collector.Handler()(rr, req)

	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "kookbridge_uptime_seconds") {
		t.Error("expected uptime metric in exposition output")
	}
}
