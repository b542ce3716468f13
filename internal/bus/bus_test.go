package bus

import (
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"kookbridge/internal/domain"
)

func testBusLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestEventBus_EmitAndReceive(t *testing.T) {
	eb := New(testBusLogger())

	var received int32
	eb.On(EventMessageCreated, func(e Event) {
		atomic.AddInt32(&received, 1)
		if e.Chat == nil || e.Chat.ID != "m1" {
			t.Errorf("expected chat event m1, got %+v", e.Chat)
		}
	})

	eb.Emit(Event{
		Type: EventMessageCreated,
		Chat: &domain.ChatEvent{ID: "m1", ChannelID: "c1"},
		Kind: domain.EventCreated,
	})

	if atomic.LoadInt32(&received) != 1 {
		t.Errorf("expected 1 event received, got %d", received)
	}
}

func TestEventBus_WildcardHandler(t *testing.T) {
	eb := New(testBusLogger())

	var count int32
	eb.On("*", func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	eb.Emit(Event{Type: EventGatewayReady, BotTag: "bot#0001"})
	eb.Emit(Event{Type: EventGatewayError})

	if atomic.LoadInt32(&count) != 2 {
		t.Errorf("expected 2, got %d", count)
	}
}

func TestEventBus_Off(t *testing.T) {
	eb := New(testBusLogger())

	var count int32
	id := eb.On(EventMessageUpdated, func(e Event) {
		atomic.AddInt32(&count, 1)
	})

	eb.Emit(Event{Type: EventMessageUpdated})
	eb.Off(EventMessageUpdated, id)
	eb.Emit(Event{Type: EventMessageUpdated})

	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected 1 after Off, got %d", count)
	}
}

func TestEventBus_HandlerPanicIsRecovered(t *testing.T) {
	eb := New(testBusLogger())

	var after int32
	eb.On(EventMessageCreated, func(e Event) {
		panic("handler bug")
	})
	eb.On(EventMessageCreated, func(e Event) {
		atomic.AddInt32(&after, 1)
	})

	eb.Emit(Event{Type: EventMessageCreated})

	if atomic.LoadInt32(&after) != 1 {
		t.Error("panic in one handler should not stop the next")
	}
}

func TestEventBus_TimestampDefaulted(t *testing.T) {
	eb := New(testBusLogger())

	var gotZero bool
	eb.On(EventGatewayReady, func(e Event) {
		gotZero = e.Timestamp.IsZero()
	})
	eb.Emit(Event{Type: EventGatewayReady})

	if gotZero {
		t.Error("Emit should stamp events without a timestamp")
	}
}
