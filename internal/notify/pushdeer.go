// Package notify delivers short operator notifications through push-relay
// providers. Delivery is best effort everywhere: failures are logged and
// swallowed, never re-raised to callers.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PushDeer sends notifications to a PushDeer-style relay endpoint. The
// endpoint URL carries the push key; parameters are appended to its query
// string and there is no request body.
type PushDeer struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewPushDeer creates a PushDeer provider. A nil client gets a default with
// a 10 second timeout.
func NewPushDeer(endpoint string, client *http.Client, logger *slog.Logger) *PushDeer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PushDeer{
		endpoint: endpoint,
		client:   client,
		logger:   logger,
	}
}

// Push sends a plain text notification.
func (p *PushDeer) Push(ctx context.Context, text string) error {
	return p.post(ctx, "text="+url.QueryEscape(text))
}

// PushMarkdown sends a title with a markdown detail body; the type=markdown
// marker makes the relay render it as rich text.
func (p *PushDeer) PushMarkdown(ctx context.Context, title, detail string) error {
	return p.post(ctx, "text="+url.QueryEscape(title)+"&desp="+url.QueryEscape(detail)+"&type=markdown")
}

func (p *PushDeer) post(ctx context.Context, query string) error {
	sep := "?"
	if strings.Contains(p.endpoint, "?") {
		sep = "&"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+sep+query, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushdeer post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushdeer returned %d", resp.StatusCode)
	}
	return nil
}
