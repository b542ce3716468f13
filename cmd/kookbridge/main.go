package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"kookbridge/internal/bus"
	"kookbridge/internal/config"
	"kookbridge/internal/gateway"
	"kookbridge/internal/metrics"
	"kookbridge/internal/notify"
	"kookbridge/internal/relay"
	"kookbridge/internal/web"

	"github.com/spf13/cobra"
)

var (
	version    = "0.3.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "kookbridge",
		Short: "kookbridge: Discord to KOOK message bridge",
		Long:  "kookbridge mirrors messages from allow-listed Discord channels to a KOOK-side sync endpoint and pushes operator notifications on lifecycle events.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.kookbridge/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())
	root.AddCommand(installDaemonCmd())
	root.AddCommand(uninstallDaemonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bridge (gateway session + status server)",
		Long:  "Connects to the Discord gateway, forwards eligible messages to the sync endpoint, and serves local status endpoints. Press Ctrl+C to stop.",
		RunE:  runBridge,
	}
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}

	// The dev-mode flag may arrive from the process environment before the
	// dotenv file is read; the dotenv file itself cannot grant dev mode.
	if os.Getenv(config.EnvRunMode) == "dev" {
		cfg.General.DevMode = true
	}
	if err := config.LoadDotenv(cfg.General.EnvFile, cfg.General.DevMode); err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg)
	return cfg, nil
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err = buildLogger(cfg)
	if err != nil {
		return err
	}

	token := cfg.Discord.ResolveToken()
	if token == "" {
		return fmt.Errorf("discord token not configured (set discord.token or %s)", config.EnvDiscordToken)
	}
	if cfg.Sync.APIBase == "" {
		return fmt.Errorf("sync endpoint not configured (set sync.apiBase or %s)", config.EnvSyncAPIBase)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(logger)
	notifier := buildNotifier(cfg)

	devChannel := ""
	if cfg.General.DevMode {
		devChannel = cfg.Discord.DevChannel
	}
	allow := relay.NewAllowList(cfg.Discord.Channels, devChannel)

	forwarder := relay.NewForwarder(relay.ForwarderConfig{
		APIBase:  cfg.Sync.APIBase,
		Allow:    allow,
		Notifier: notifier,
		Timeout:  time.Duration(cfg.Sync.TimeoutSeconds) * time.Second,
		Logger:   logger,
	})

	wireBus(ctx, eventBus, forwarder, notifier)

	session := gateway.New(gateway.Config{
		Token:   token,
		GuildID: cfg.Discord.GuildID,
		Bus:     eventBus,
		Logger:  logger,
	})

	if cfg.Web.Enabled {
		webSrv := web.NewServer(web.ServerConfig{
			Host:    cfg.Web.Host,
			Port:    cfg.Web.Port,
			Version: version,
			Status:  session,
			Logger:  logger,
		})
		go func() {
			if err := webSrv.Start(ctx); err != nil {
				logger.Error("status server error", "err", err)
			}
		}()
	}

	logger.Info("bridge starting",
		"channels", len(allow),
		"dev", cfg.General.DevMode,
		"notify_providers", notifier.Len(),
	)

	if err := session.Run(ctx); err != nil {
		logger.Error("gateway session failed", "err", err)
		// Best-effort fatal push; the run context may already be cancelled.
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		notifier.Fatal(notifyCtx, err.Error())
		return err
	}

	logger.Info("bridge stopped")
	return nil
}

// wireBus connects gateway events to the forwarding pipeline and the
// notifier. Each Forward runs in its own goroutine: the gateway dispatch
// path never awaits delivery.
func wireBus(ctx context.Context, eventBus *bus.EventBus, forwarder *relay.Forwarder, notifier *notify.Manager) {
	forward := func(e bus.Event) {
		if e.Chat != nil {
			go forwarder.Forward(ctx, *e.Chat, e.Kind)
		}
	}
	eventBus.On(bus.EventMessageCreated, forward)
	eventBus.On(bus.EventMessageUpdated, forward)
	eventBus.On(bus.EventGatewayReady, func(e bus.Event) {
		go notifier.Startup(ctx, e.BotTag)
	})
	eventBus.On(bus.EventGatewayError, func(e bus.Event) {
		metrics.GatewayErrors.Inc()
		logger.Warn("gateway error", "err", e.Err)
	})
}

// buildNotifier assembles the notification fan-out from config. A provider
// that cannot be constructed is logged and skipped; the bridge still runs.
func buildNotifier(cfg *config.Config) *notify.Manager {
	notifier := notify.NewManager(logger)

	if cfg.Notify.PushDeer.Enabled {
		if endpoint := cfg.Notify.PushDeer.ResolveEndpoint(); endpoint != "" {
			notifier.Register("pushdeer", notify.NewPushDeer(endpoint, nil, logger))
		} else {
			logger.Warn("pushdeer enabled but no endpoint configured")
		}
	}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, logger)
		if err != nil {
			logger.Error("telegram notifier unavailable", "err", err)
		} else {
			notifier.Register("telegram", tg)
		}
	}

	if cfg.Notify.Slack.Enabled {
		notifier.Register("slack", notify.NewSlack(cfg.Notify.Slack.WebhookURL, logger))
	}

	return notifier
}

// buildLogger returns a logger at the configured level, teeing to
// <logDir>/kookbridge.log when a log directory is set.
func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.General.LogDir != "" {
		dir := config.ExpandPath(cfg.General.LogDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "kookbridge.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bridge status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Info("config", "path", resolveConfigPath())
			logger.Info("discord", "token_set", cfg.Discord.ResolveToken() != "", "channels", len(cfg.Discord.Channels))
			logger.Info("sync", "api_base", cfg.Sync.APIBase)
			logger.Info("notify",
				"pushdeer", cfg.Notify.PushDeer.Enabled,
				"telegram", cfg.Notify.Telegram.Enabled,
				"slack", cfg.Notify.Slack.Enabled,
			)

			if !cfg.Web.Enabled {
				logger.Info("status server disabled; cannot probe running bridge")
				return nil
			}

			url := fmt.Sprintf("http://%s:%d/healthz", cfg.Web.Host, cfg.Web.Port)
			client := &http.Client{Timeout: 3 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				logger.Info("bridge", "running", false)
				return nil
			}
			defer resp.Body.Close()

			var health map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&health); err == nil {
				logger.Info("bridge", "running", true, "gateway", health["gateway"], "bot", health["bot"])
			} else {
				logger.Info("bridge", "running", true)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. sync.apiBase)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. sync.apiBase http://kook.example)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
