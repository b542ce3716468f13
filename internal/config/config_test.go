package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Defaults()
	cfg.Web.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Web.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "loud"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestValidate_TimeoutTooLow(t *testing.T) {
	cfg := Defaults()
	cfg.Sync.TimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for timeoutSeconds=0")
	}
}

func TestValidate_TelegramEnabledWithoutToken(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.Telegram.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled telegram without token/chatId")
	}
}

func TestValidate_SlackEnabledWithoutWebhook(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.Slack.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled slack without webhookUrl")
	}
}

// --- Load / Save ---

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.Discord.Channels = FlexStringList{"111", "222"}
	cfg.Sync.APIBase = "http://kook.example"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Sync.APIBase != "http://kook.example" {
		t.Errorf("apiBase lost in round trip: %q", loaded.Sync.APIBase)
	}
	if len(loaded.Discord.Channels) != 2 || loaded.Discord.Channels[0] != "111" {
		t.Errorf("channels lost in round trip: %v", loaded.Discord.Channels)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_EnvVarSubstitution(t *testing.T) {
	t.Setenv("KOOKBRIDGE_TEST_BASE", "http://sub.example")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw := `{"sync":{"apiBase":"${KOOKBRIDGE_TEST_BASE}","timeoutSeconds":5}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sync.APIBase != "http://sub.example" {
		t.Errorf("expected env substitution, got %q", cfg.Sync.APIBase)
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	var f FlexStringList
	if err := json.Unmarshal([]byte(`["123", 456]`), &f); err != nil {
		t.Fatal(err)
	}
	if len(f) != 2 || f[0] != "123" || f[1] != "456" {
		t.Errorf("expected [123 456], got %v", f)
	}
}

func TestFlexStringList_SnowflakeDigitsPreserved(t *testing.T) {
	// Channel IDs exceed 2^53; every digit has to survive decoding.
	var f FlexStringList
	if err := json.Unmarshal([]byte(`[1190913210985808916, "1190913210985808917"]`), &f); err != nil {
		t.Fatal(err)
	}
	if len(f) != 2 {
		t.Fatalf("expected 2 entries, got %v", f)
	}
	if f[0] != "1190913210985808916" {
		t.Errorf("bare-number ID corrupted: got %q", f[0])
	}
	if f[1] != "1190913210985808917" {
		t.Errorf("string ID corrupted: got %q", f[1])
	}
}

// --- Secrets ---

func TestResolveSecret_FileWins(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "token")
	if err := os.WriteFile(file, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := ResolveSecret("direct", file); got != "from-file" {
		t.Errorf("expected file value to win, got %q", got)
	}
}

func TestResolveSecret_MissingFileFallsBack(t *testing.T) {
	if got := ResolveSecret("direct", filepath.Join(t.TempDir(), "nope")); got != "direct" {
		t.Errorf("expected direct value, got %q", got)
	}
}

func TestResolveSecret_EmptyEverything(t *testing.T) {
	if got := ResolveSecret("", ""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

// --- Env overlay ---

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv(EnvDiscordToken, "env-token")
	t.Setenv(EnvSyncAPIBase, "http://env.example")
	t.Setenv(EnvDiscordChannels, "c1, c2 ,c3")
	t.Setenv(EnvRunMode, "dev")

	cfg := Defaults()
	ApplyEnv(cfg)

	if cfg.Discord.Token != "env-token" {
		t.Errorf("token: %q", cfg.Discord.Token)
	}
	if cfg.Sync.APIBase != "http://env.example" {
		t.Errorf("apiBase: %q", cfg.Sync.APIBase)
	}
	if len(cfg.Discord.Channels) != 3 || cfg.Discord.Channels[1] != "c2" {
		t.Errorf("channels: %v", cfg.Discord.Channels)
	}
	if !cfg.General.DevMode {
		t.Error("expected dev mode from env")
	}
}

// --- Dotenv ---

func TestLoadDotenv_MissingFatalInDevMode(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), ".env"), true); err == nil {
		t.Fatal("expected error for missing .env in dev mode")
	}
}

func TestLoadDotenv_MissingOKOutsideDevMode(t *testing.T) {
	if err := LoadDotenv(filepath.Join(t.TempDir(), ".env"), false); err != nil {
		t.Fatalf("missing .env should be fine outside dev mode: %v", err)
	}
}

func TestLoadDotenv_LoadsValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("KOOKBRIDGE_DOTENV_TEST=hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KOOKBRIDGE_DOTENV_TEST", "") // registers cleanup
	os.Unsetenv("KOOKBRIDGE_DOTENV_TEST")

	if err := LoadDotenv(path, true); err != nil {
		t.Fatalf("load: %v", err)
	}
	if os.Getenv("KOOKBRIDGE_DOTENV_TEST") != "hello" {
		t.Error("expected dotenv value in environment")
	}
}

// --- Accessors ---

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	cfg.Sync.APIBase = "http://kook.example"

	val, err := GetByPath(cfg, "sync.apiBase")
	if err != nil {
		t.Fatal(err)
	}
	if val != "http://kook.example" {
		t.Errorf("expected apiBase, got %v", val)
	}

	if _, err := GetByPath(cfg, "sync.nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetByPath_TypedValues(t *testing.T) {
	cfg := Defaults()

	if err := SetByPath(cfg, "web.port", "8088"); err != nil {
		t.Fatal(err)
	}
	if cfg.Web.Port != 8088 {
		t.Errorf("expected 8088, got %d", cfg.Web.Port)
	}

	if err := SetByPath(cfg, "general.devMode", "true"); err != nil {
		t.Fatal(err)
	}
	if !cfg.General.DevMode {
		t.Error("expected devMode=true")
	}
}

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Token = "super-secret-discord-token"
	cfg.Notify.PushDeer.Endpoint = "https://api2.pushdeer.com/message/push?pushkey=PDU1TKEY"

	s := Sanitize(cfg)
	if s.Discord.Token == cfg.Discord.Token {
		t.Error("token should be masked")
	}
	if s.Notify.PushDeer.Endpoint == cfg.Notify.PushDeer.Endpoint {
		t.Error("endpoint should be masked")
	}
	// Original untouched.
	if cfg.Discord.Token != "super-secret-discord-token" {
		t.Error("Sanitize must not mutate its input")
	}
}
