package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names honored at startup. File-suffixed variables
// point at a secret file whose content wins over the direct value.
const (
	EnvDiscordToken         = "DISCORD_TOKEN"
	EnvDiscordTokenFile     = "DISCORD_TOKEN_FILE"
	EnvDiscordChannels      = "DISCORD_CHANNELS"
	EnvPushDeerEndpoint     = "PUSH_DEER_ENDPOINT"
	EnvPushDeerEndpointFile = "PUSH_DEER_ENDPOINT_FILE"
	EnvSyncAPIBase          = "KOOK_BOT_API_BASE"
	EnvRunMode              = "KOOKBRIDGE_ENV"
	EnvLogDir               = "KOOKBRIDGE_LOG_DIR"
)

// LoadDotenv loads the dotenv file into the process environment. A missing
// file is fatal in development mode and silently fine otherwise.
func LoadDotenv(path string, devMode bool) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if devMode {
			return fmt.Errorf("%s file missing (required in development mode)", path)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config. The environment
// wins over file values so containerized deployments need no config file.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvDiscordToken); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv(EnvDiscordTokenFile); v != "" {
		cfg.Discord.TokenFile = ExpandPath(v)
	}
	if v := os.Getenv(EnvDiscordChannels); v != "" {
		cfg.Discord.Channels = splitList(v)
	}
	if v := os.Getenv(EnvPushDeerEndpoint); v != "" {
		cfg.Notify.PushDeer.Endpoint = v
	}
	if v := os.Getenv(EnvPushDeerEndpointFile); v != "" {
		cfg.Notify.PushDeer.EndpointFile = ExpandPath(v)
	}
	if v := os.Getenv(EnvSyncAPIBase); v != "" {
		cfg.Sync.APIBase = v
	}
	if os.Getenv(EnvRunMode) == "dev" {
		cfg.General.DevMode = true
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		cfg.General.LogDir = ExpandPath(v)
	}
}

// ResolveSecret returns the secret value from its file indirection when the
// file is readable, else the direct value, else "".
func ResolveSecret(direct, file string) string {
	if file != "" {
		if data, err := os.ReadFile(file); err == nil {
			if v := strings.TrimSpace(string(data)); v != "" {
				return v
			}
		}
	}
	return direct
}

// ResolveToken returns the bot credential, honoring file indirection.
func (d DiscordConfig) ResolveToken() string {
	return ResolveSecret(d.Token, d.TokenFile)
}

// ResolveEndpoint returns the push relay endpoint, honoring file indirection.
func (p PushDeerConfig) ResolveEndpoint() string {
	return ResolveSecret(p.Endpoint, p.EndpointFile)
}

func splitList(s string) FlexStringList {
	parts := strings.Split(s, ",")
	out := make(FlexStringList, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
