package config

import "github.com/ilyakaznacheev/cleanenv"

func parseEnv(cfg *Config) error {
	return cleanenv.ReadEnv(cfg)
}
