package config

import "time"

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8000,
		},
		Web: WebConfig{
			Enabled:   true,
			Port:      8080,
			StaticDir: "./web",
			Websocket: "ws://127.0.0.1:8000/ws",
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Database: DatabaseConfig{
			DSN: "data/worklog.db",
		},
		Security: SecurityConfig{
			TokenTTL:         7 * 24 * time.Hour,
			BcryptCost:       12,
			MaxLoginAttempts: 5,
			LockoutWindow:    15 * time.Minute,
			SessionLifetime:  7 * 24 * time.Hour,
			InactivityWindow: 30 * time.Minute,
			CleanupInterval:  10 * time.Minute,
		},
		SessionStore: SessionStoreConfig{
			Driver: "gorm",
		},
		Observability: ObservabilityConfig{
			Enabled: false,
		},
	}
}
