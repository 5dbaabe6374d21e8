package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays FOODHUB_* environment variables. Unset variables keep
// the current value; durations use time.ParseDuration syntax.
func parseEnv(config *Config) error {
	return cleanenv.ReadEnv(config)
}
