package notify

import (
	"context"
	"log/slog"

	"kookbridge/internal/domain"
	"kookbridge/internal/metrics"
)

// FatalTitle heads fatal-error notifications so they stand out in the
// operator's push feed.
const FatalTitle = "kookbridge fatal error"

// StartupText renders the startup-success notification.
func StartupText(botTag string) string {
	return "Ready! Logged in as " + botTag
}

type namedProvider struct {
	name     string
	notifier domain.Notifier
}

// Manager fans a notification out to every registered provider. It
// implements domain.Notifier itself and always reports success: a provider
// failure is logged and counted, never surfaced, so a dead push relay can
// never stall message forwarding.
type Manager struct {
	providers []namedProvider
	logger    *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Register adds a provider under a name used in failure logs.
func (m *Manager) Register(name string, n domain.Notifier) {
	m.providers = append(m.providers, namedProvider{name: name, notifier: n})
}

// Len returns the number of registered providers.
func (m *Manager) Len() int { return len(m.providers) }

func (m *Manager) Push(ctx context.Context, text string) error {
	for _, p := range m.providers {
		metrics.NotifyPushes.Inc()
		if err := p.notifier.Push(ctx, text); err != nil {
			metrics.NotifyFailures.Inc()
			m.logger.Error("notification delivery failed", "provider", p.name, "err", err)
		}
	}
	return nil
}

func (m *Manager) PushMarkdown(ctx context.Context, title, detail string) error {
	for _, p := range m.providers {
		metrics.NotifyPushes.Inc()
		if err := p.notifier.PushMarkdown(ctx, title, detail); err != nil {
			metrics.NotifyFailures.Inc()
			m.logger.Error("notification delivery failed", "provider", p.name, "err", err)
		}
	}
	return nil
}

// Startup announces a successful login.
func (m *Manager) Startup(ctx context.Context, botTag string) {
	_ = m.Push(ctx, StartupText(botTag))
}

// Fatal announces an unrecoverable failure with the error detail rendered
// as markdown.
func (m *Manager) Fatal(ctx context.Context, detail string) {
	_ = m.PushMarkdown(ctx, FatalTitle, detail)
}
