package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for the bridge.
type Config struct {
	General GeneralConfig `json:"general"`
	Discord DiscordConfig `json:"discord"`
	Sync    SyncConfig    `json:"sync"`
	Notify  NotifyConfig  `json:"notify"`
	Web     WebConfig     `json:"web"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogDir   string `json:"logDir,omitempty"`  // when set, logs also go to <logDir>/kookbridge.log
	DevMode  bool   `json:"devMode"`           // development mode; requires the .env file to exist
	EnvFile  string `json:"envFile,omitempty"` // dotenv file loaded at startup
}

// DiscordConfig configures the gateway connection and the channel allow-list.
type DiscordConfig struct {
	Token      string         `json:"token,omitempty"`
	TokenFile  string         `json:"tokenFile,omitempty"` // file indirection; wins over token when readable
	GuildID    string         `json:"guildId,omitempty"`   // optional: restrict to one guild
	Channels   FlexStringList `json:"channels"`            // channel IDs eligible for forwarding
	DevChannel string         `json:"devChannel,omitempty"`
}

// SyncConfig configures the outbound sync endpoint.
type SyncConfig struct {
	APIBase        string `json:"apiBase"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// NotifyConfig configures the operator notification providers.
type NotifyConfig struct {
	PushDeer PushDeerConfig       `json:"pushdeer"`
	Telegram TelegramNotifyConfig `json:"telegram,omitempty"`
	Slack    SlackNotifyConfig    `json:"slack,omitempty"`
}

type PushDeerConfig struct {
	Enabled      bool   `json:"enabled"`
	Endpoint     string `json:"endpoint,omitempty"`
	EndpointFile string `json:"endpointFile,omitempty"`
}

type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chatId,omitempty"`
}

type SlackNotifyConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhookUrl,omitempty"`
}

// WebConfig configures the local status HTTP server.
type WebConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (channel IDs are often pasted as bare numbers).
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		// Decode numbers as json.Number so snowflake IDs above 2^53 keep
		// every digit; a float64 round trip would corrupt them.
		var n json.Number
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, n.String())
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.kookbridge).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kookbridge"
	}
	return filepath.Join(home, ".kookbridge")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogDir = ExpandPath(cfg.General.LogDir)
	cfg.Discord.TokenFile = ExpandPath(cfg.Discord.TokenFile)
	cfg.Notify.PushDeer.EndpointFile = ExpandPath(cfg.Notify.PushDeer.EndpointFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values. Required secrets are not
// checked here: they may still arrive from the environment at startup.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Sync.TimeoutSeconds < 1 {
		errs = append(errs, "sync.timeoutSeconds must be >= 1")
	}

	if cfg.Web.Port < 0 || cfg.Web.Port > 65535 {
		errs = append(errs, "web.port must be between 0 and 65535")
	}

	if cfg.Notify.Telegram.Enabled && (cfg.Notify.Telegram.Token == "" || cfg.Notify.Telegram.ChatID == 0) {
		errs = append(errs, "notify.telegram requires token and chatId when enabled")
	}
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.WebhookURL == "" {
		errs = append(errs, "notify.slack requires webhookUrl when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
