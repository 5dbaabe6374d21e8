package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the FoodHub CLI.
type Config struct {
	ServerURL      string        `env:"FOODHUB_CLIENT_SERVER_URL"`
	RequestTimeout time.Duration `env:"FOODHUB_CLIENT_REQUEST_TIMEOUT"`
	DeviceID       string        `env:"FOODHUB_CLIENT_DEVICE_ID"`
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig applies defaults, then the JSON file, environment and flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server url is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive")
	}
	return cfg, nil
}
