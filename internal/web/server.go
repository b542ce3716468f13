// Package web serves the local status endpoints: a hello root, a JSON
// health check, and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kookbridge/internal/metrics"
)

// Status reports gateway connectivity for the health endpoint.
type Status interface {
	Connected() bool
	BotTag() string
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Host    string
	Port    int
	Version string
	Status  Status
	Logger  *slog.Logger
}

// Server is the local status HTTP server.
type Server struct {
	host    string
	port    int
	version string
	status  Status
	logger  *slog.Logger
	server  *http.Server
	started time.Time
}

// NewServer creates a status server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	return &Server{
		host:    cfg.Host,
		port:    cfg.Port,
		version: cfg.Version,
		status:  cfg.Status,
		logger:  cfg.Logger,
	}
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", metrics.Collector.Handler())

	s.started = time.Now()
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("status server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("status server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Hello World")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	connected := false
	botTag := ""
	if s.status != nil {
		connected = s.status.Connected()
		botTag = s.status.BotTag()
	}

	w.Header().Set("Content-Type", "application/json")
	if !connected {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":         statusWord(connected),
		"gateway":        connected,
		"bot":            botTag,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func statusWord(connected bool) string {
	if connected {
		return "ok"
	}
	return "degraded"
}
