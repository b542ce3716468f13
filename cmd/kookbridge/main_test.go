package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"kookbridge/internal/bus"
	"kookbridge/internal/domain"
	"kookbridge/internal/metrics"
	"kookbridge/internal/notify"
	"kookbridge/internal/relay"
)

func testMainLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestWireBusGatewayErrorHandled(t *testing.T) {
	logger = testMainLogger()
	eventBus := bus.New(logger)
	forwarder := relay.NewForwarder(relay.ForwarderConfig{APIBase: "http://127.0.0.1:0", Logger: logger})
	notifier := notify.NewManager(logger)

	wireBus(context.Background(), eventBus, forwarder, notifier)

	before := metrics.GatewayErrors.Value()
	eventBus.Emit(bus.Event{Type: bus.EventGatewayError, Source: "gateway", Err: errors.New("connection lost")})

	if got := metrics.GatewayErrors.Value(); got != before+1 {
		t.Errorf("expected gateway error counter to increment, got %d -> %d", before, got)
	}
}

func TestWireBusForwardsCreatedMessages(t *testing.T) {
	logger = testMainLogger()

	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
	}))
	defer srv.Close()

	eventBus := bus.New(logger)
	forwarder := relay.NewForwarder(relay.ForwarderConfig{
		APIBase: srv.URL,
		Allow:   relay.NewAllowList([]string{"CH1"}, ""),
		Logger:  logger,
	})
	notifier := notify.NewManager(logger)

	wireBus(context.Background(), eventBus, forwarder, notifier)

	ev := domain.ChatEvent{
		ID:        "m1",
		ChannelID: "CH1",
		Author:    domain.Author{ID: "u1", Username: "Foo"},
		Content:   "hi",
	}
	eventBus.Emit(bus.Event{Type: bus.EventMessageCreated, Source: "gateway", Chat: &ev, Kind: domain.EventCreated})

	// Delivery runs in its own goroutine; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for posts.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if posts.Load() != 1 {
		t.Errorf("expected 1 sync POST, got %d", posts.Load())
	}
}
