package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/foodhub/internal/flagx"
	"github.com/dmitrijs2005/foodhub/internal/timex"
)

// JsonConfig is the on-disk DTO. Durations accept "24h" or integer nanoseconds.
// Absent fields leave the current value untouched.
type JsonConfig struct {
	Environment                  string          `json:"environment"`
	LogLevel                     string          `json:"log_level"`
	HTTPAddr                     string          `json:"http_addr"`
	GRPCAddr                     string          `json:"grpc_addr"`
	DatabaseDSN                  string          `json:"database_dsn"`
	RedisAddr                    string          `json:"redis_addr"`
	RedisPassword                string          `json:"redis_password"`
	RedisDB                      *int            `json:"redis_db"`
	AccessTokenSecret            string          `json:"access_token_secret"`
	RefreshTokenSecret           string          `json:"refresh_token_secret"`
	TokenIssuer                  string          `json:"token_issuer"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	CookieSameSite               string          `json:"cookie_same_site"`
	AuthRateLimitPerMinute       int             `json:"auth_rate_limit_per_minute"`
	PruneInterval                *timex.Duration `json:"prune_interval"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
}

// parseJSON overlays the file passed with -c/-config, if any.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.TokenIssuer, c.TokenIssuer)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.CookieSameSite, c.CookieSameSite)
	if c.AuthRateLimitPerMinute != 0 {
		config.AuthRateLimitPerMinute = c.AuthRateLimitPerMinute
	}
	if c.PruneInterval != nil {
		config.PruneInterval = c.PruneInterval.Duration
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
