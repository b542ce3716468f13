package main

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"kookbridge/internal/config"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your kookbridge installation",
		Long: `Verifies that kookbridge's configuration, Discord credentials, sync
endpoint, and notification channels are correctly set up. Reports
pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("kookbridge Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				failed++
				fmt.Printf("\nRun 'kookbridge init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			if cfg == nil {
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return nil
			}

			// 3. Dotenv file in dev mode
			if cfg.General.DevMode {
				envFile := cfg.General.EnvFile
				if envFile == "" {
					envFile = ".env"
				}
				if _, err := os.Stat(envFile); err != nil {
					printFail("Dotenv file", fmt.Sprintf("dev mode requires %s", envFile))
					failed++
				} else {
					printPass("Dotenv file", envFile)
					passed++
				}
			}
			config.ApplyEnv(cfg)

			// 4. Discord token resolvable
			if token := cfg.Discord.ResolveToken(); token == "" {
				printFail("Discord token", "not configured (set discord.token, discord.tokenFile, or DISCORD_TOKEN)")
				failed++
			} else {
				printPass("Discord token", "configured")
				passed++
			}

			// 5. Allow-listed channels
			if len(cfg.Discord.Channels) == 0 {
				printWarn("Channels", "allow list is empty, every guild message will be dropped")
				warned++
			} else {
				printPass("Channels", fmt.Sprintf("%d allow-listed", len(cfg.Discord.Channels)))
				passed++
			}

			// 6. Sync endpoint configured and reachable
			if cfg.Sync.APIBase == "" {
				printFail("Sync endpoint", "sync.apiBase not configured")
				failed++
			} else if err := checkEndpoint(cfg.Sync.APIBase); err != nil {
				printWarn("Sync endpoint", fmt.Sprintf("%s unreachable: %v", cfg.Sync.APIBase, err))
				warned++
			} else {
				printPass("Sync endpoint", cfg.Sync.APIBase)
				passed++
			}

			// 7. Notification providers
			notifierCount := 0
			if cfg.Notify.PushDeer.Enabled {
				notifierCount++
				if cfg.Notify.PushDeer.ResolveEndpoint() == "" {
					printWarn("Notify: pushdeer", "enabled but no endpoint configured")
					warned++
				} else {
					printPass("Notify: pushdeer", "configured")
					passed++
				}
			}
			if cfg.Notify.Telegram.Enabled {
				notifierCount++
				if cfg.Notify.Telegram.Token == "" || cfg.Notify.Telegram.ChatID == 0 {
					printWarn("Notify: telegram", "enabled but token or chatId missing")
					warned++
				} else {
					printPass("Notify: telegram", "configured")
					passed++
				}
			}
			if cfg.Notify.Slack.Enabled {
				notifierCount++
				if cfg.Notify.Slack.WebhookURL == "" {
					printWarn("Notify: slack", "enabled but no webhook URL configured")
					warned++
				} else {
					printPass("Notify: slack", "configured")
					passed++
				}
			}
			if notifierCount == 0 {
				printWarn("Notifications", "no providers enabled, startup and error pushes will be skipped")
				warned++
			}

			// 8. Status server port
			if cfg.Web.Enabled {
				port := cfg.Web.Port
				if port == 0 {
					port = 3000
				}
				if err := checkPort(port); err != nil {
					printWarn("Status port", fmt.Sprintf("port %d may be in use: %v", port, err))
					warned++
				} else {
					printPass("Status port", fmt.Sprintf(":%d available", port))
					passed++
				}
			}

			// 9. Log directory writable
			if cfg.General.LogDir != "" {
				dir := config.ExpandPath(cfg.General.LogDir)
				if err := os.MkdirAll(dir, 0o755); err != nil {
					printWarn("Log directory", fmt.Sprintf("cannot create: %v", err))
					warned++
				} else {
					printPass("Log directory", filepath.Join(dir, "kookbridge.log"))
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running kookbridge.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nkookbridge should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! kookbridge is ready to run.\n")
			}
			return nil
		},
	}
}

func checkEndpoint(apiBase string) error {
	u, err := url.Parse(apiBase)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Head(apiBase)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func checkPort(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
