package domain

import "context"

// Notifier delivers short operator-facing notifications. Delivery is best
// effort: callers log the returned error and never act on it.
type Notifier interface {
	// Push sends a plain text notification.
	Push(ctx context.Context, text string) error
	// PushMarkdown sends a title plus a markdown-rendered detail body.
	PushMarkdown(ctx context.Context, title, detail string) error
}
