package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
			EnvFile:  ".env",
		},
		Discord: DiscordConfig{
			Channels: FlexStringList{},
		},
		Sync: SyncConfig{
			TimeoutSeconds: 10,
		},
		Notify: NotifyConfig{
			PushDeer: PushDeerConfig{
				Enabled: true,
			},
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    3000,
		},
	}
}
