package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			BaseURL:  "http://localhost:8080",
			LogLevel: "info",
		},
		Line: LineConfig{
			ChannelSecret: "${LINE_CHANNEL_SECRET}",
			ChannelToken:  "${LINE_CHANNEL_TOKEN}",
			Port:          8080,
			WebhookPath:   "/callback",
		},
		Content: ContentConfig{
			Dir:                  "~/.sinkbot/downloaded",
			StaticDir:            "~/.sinkbot/static",
			DBPath:               "~/.sinkbot/content.db",
			RetentionHours:       24,
			SweepIntervalMinutes: 15,
		},
		Transform: TransformConfig{
			ConvertPath:    "convert",
			TimeoutSeconds: 60,
			MaxConcurrent:  4,
		},
		Dispatch: DispatchConfig{
			MaxConcurrentEvents: 16,
			BusBuffer:           100,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
