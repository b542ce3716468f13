package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kookbridge/internal/domain"
	"kookbridge/internal/metrics"
)

// syncPath is the fixed path on the sync endpoint that ingests normalized
// messages for cross-platform mirroring.
const syncPath = "/sync-discord-message"

// Forwarder relays eligible chat events to the sync endpoint. Delivery is
// best effort by policy, not oversight: every failure is logged and
// swallowed so nothing propagates back into the gateway callback path.
type Forwarder struct {
	baseURL  string
	allow    AllowList
	notifier domain.Notifier
	client   *http.Client
	logger   *slog.Logger
}

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	APIBase  string
	Allow    AllowList
	Notifier domain.Notifier // nil disables per-message notifications
	Client   *http.Client    // nil uses SharedHTTPClient
	Timeout  time.Duration
	Logger   *slog.Logger
}

// NewForwarder creates a Forwarder.
func NewForwarder(cfg ForwarderConfig) *Forwarder {
	client := cfg.Client
	if client == nil {
		client = SharedHTTPClient(cfg.Timeout)
	}
	return &Forwarder{
		baseURL:  strings.TrimRight(cfg.APIBase, "/"),
		allow:    cfg.Allow,
		notifier: cfg.Notifier,
		client:   client,
		logger:   cfg.Logger,
	}
}

// Forward relays one event of the given kind. Created events additionally
// raise a short operator notification before the sync POST; the two calls
// are independent and neither failure blocks the other. Updated events only
// perform the sync POST.
func (f *Forwarder) Forward(ctx context.Context, ev domain.ChatEvent, kind domain.EventKind) {
	if !ShouldForward(f.allow, ev) {
		metrics.MessagesFiltered.Inc()
		return
	}

	msg := Normalize(ev)

	if kind == domain.EventCreated && f.notifier != nil {
		if err := f.notifier.Push(ctx, "Message from "+msg.Author.Username); err != nil {
			f.logger.Error("notification push failed", "message_id", msg.ID, "err", err)
		}
	}

	if err := f.postSync(ctx, msg); err != nil {
		metrics.SyncFailures.Inc()
		f.logger.Error("sync push failed", "message_id", msg.ID, "channel_id", msg.ChannelID, "err", err)
		return
	}

	metrics.MessagesForwarded.Inc()
	f.logger.Info("message forwarded",
		"message_id", msg.ID,
		"channel_id", msg.ChannelID,
		"kind", kind.String(),
	)
}

func (f *Forwarder) postSync(ctx context.Context, msg domain.NormalizedMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+syncPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.SyncLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("sync post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sync endpoint returned %d", resp.StatusCode)
	}
	return nil
}
