package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Web           WebConfig           `yaml:"web"`
	Log           LogConfig           `yaml:"log"`
	Database      DatabaseConfig      `yaml:"database"`
	Security      SecurityConfig      `yaml:"security"`
	SessionStore  SessionStoreConfig  `yaml:"session_store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig toggles span and metric emission.
type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ServerConfig addresses the realtime (websocket) listener.
type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// WebConfig addresses the HTTP API listener.
type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
	Websocket string `yaml:"websocket"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SecurityConfig collects the access-control policy knobs. Values are read at
// decision time; changing them affects subsequent decisions only.
type SecurityConfig struct {
	TokenSecret       string        `yaml:"token_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	MaxLoginAttempts  int           `yaml:"max_login_attempts"`
	LockoutWindow     time.Duration `yaml:"lockout_window"`
	SessionLifetime   time.Duration `yaml:"session_lifetime"`
	InactivityWindow  time.Duration `yaml:"inactivity_window"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	ExternalClientKey string        `yaml:"external_client_key"`
}

type SessionStoreConfig struct {
	Driver string           `yaml:"driver"`
	Redis  RedisStoreConfig `yaml:"redis,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}
