package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = ".config.yaml"

// Loader reads configuration from a yaml file with environment overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader using the default config path resolution.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the config file when present, falling back to defaults, and then
// applies environment variable overrides for secrets.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using process environment")
		}
	}

	path := l.path
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		path = "(defaults)"
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

// Secrets are preferably supplied via environment so the yaml file can be
// committed without them.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WORKLOG_TOKEN_SECRET"); v != "" {
		cfg.Security.TokenSecret = v
	}
	if v := os.Getenv("WORKLOG_EXTERNAL_CLIENT_KEY"); v != "" {
		cfg.Security.ExternalClientKey = v
	}
	if v := os.Getenv("WORKLOG_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("WORKLOG_REDIS_ADDR"); v != "" {
		cfg.SessionStore.Redis.Addr = v
	}
	if v := os.Getenv("WORKLOG_REDIS_PASSWORD"); v != "" {
		cfg.SessionStore.Redis.Password = v
	}
}
